// Package snippet generates copy-and-paste helper code that reproduces a pull
// run outside the tool: the same sequence of HTTP calls and the same
// merge-and-deduplicate-columns logic, in Python and in R.
//
// Output is deterministic for a fixed URL list so snippets can be diffed and
// tested byte for byte.
package snippet

import (
	"strconv"
	"strings"
)

// Python returns a Python script that fetches every URL with requests,
// builds a pandas frame per response, and concatenates them dropping
// duplicate columns keep-first.
func Python(urls []string) string {
	quoted := make([]string, len(urls))
	for i, u := range urls {
		quoted[i] = pythonQuote(u)
	}

	var b strings.Builder
	b.WriteString("import requests, pandas as pd\n")
	b.WriteString("urls = [" + strings.Join(quoted, ", ") + "]\n")
	b.WriteString("dfs  = [pd.DataFrame(r.json()[1:], columns=r.json()[0])\n")
	b.WriteString("        for u in urls\n")
	b.WriteString("        for r in [requests.get(u)]]\n")
	b.WriteString("out = pd.concat(dfs, axis=1)\\\n")
	b.WriteString("        .loc[:, ~pd.concat(dfs, axis=1).columns.duplicated()]")
	return b.String()
}

// R returns an R script that fetches every URL with httr, parses each
// array-of-arrays response into a tibble, and full-joins the frames on the
// shared NAME column.
func R(urls []string) string {
	quoted := make([]string, len(urls))
	for i, u := range urls {
		quoted[i] = strconv.Quote(u)
	}

	var b strings.Builder
	b.WriteString("library(httr); library(jsonlite); library(dplyr); library(purrr)\n")
	b.WriteString("urls <- c(" + strings.Join(quoted, ", ") + ")\n")
	b.WriteString("dfs  <- map(urls, function(u) {\n")
	b.WriteString("    res <- content(GET(u), as = \"text\")\n")
	b.WriteString("    j   <- fromJSON(res)\n")
	b.WriteString("    names(j) <- j[1, ]\n")
	b.WriteString("    as_tibble(j[-1, ])\n")
	b.WriteString("})\n")
	b.WriteString("out <- reduce(dfs, full_join, by = \"NAME\")")
	return b.String()
}

// pythonQuote renders s as a single-quoted Python string literal.
func pythonQuote(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `'`, `\'`)
	return "'" + s + "'"
}
