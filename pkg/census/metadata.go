package census

import (
	"context"
	"encoding/json"
	"sort"

	"github.com/piercedata/acsdash/pkg/errors"
)

// groupMeta holds the variable metadata for one subject-table group.
// order lists the variable codes in the fixed, deterministic order the
// selector iterates them (sorted; JSON objects carry no order of their own).
type groupMeta struct {
	labels map[string]string
	order  []string
}

// groupResponse mirrors the metadata endpoint's JSON shape.
type groupResponse struct {
	Variables map[string]struct {
		Label string `json:"label"`
	} `json:"variables"`
}

// Labels returns the variable-code to label mapping for a group, together
// with the deterministic code order. The first call per group id issues one
// GET to the group-metadata endpoint; subsequent calls are served from the
// in-process cache for the process lifetime. The cache is unbounded, which is
// acceptable because the set of group ids is small and fixed.
//
// Endpoint failures and malformed bodies surface as METADATA_ERROR and must
// abort the run; there is no fallback.
func (c *Client) Labels(ctx context.Context, groupID string) (map[string]string, []string, error) {
	if err := errors.ValidateGroupID(groupID); err != nil {
		return nil, nil, err
	}

	c.mu.Lock()
	meta, ok := c.groups[groupID]
	c.mu.Unlock()
	if ok {
		return meta.labels, meta.order, nil
	}

	body, err := c.doGet(ctx, c.groupURL(groupID))
	if err != nil {
		return nil, nil, errors.Wrap(errors.ErrCodeMetadata, err, "fetch metadata for group %s", groupID)
	}

	var resp groupResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, nil, errors.Wrap(errors.ErrCodeMetadata, err, "malformed metadata for group %s", groupID)
	}
	if len(resp.Variables) == 0 {
		return nil, nil, errors.New(errors.ErrCodeMetadata, "group %s metadata has no variables", groupID)
	}

	meta = &groupMeta{labels: make(map[string]string, len(resp.Variables))}
	for code, v := range resp.Variables {
		meta.labels[code] = v.Label
		meta.order = append(meta.order, code)
	}
	sort.Strings(meta.order)

	c.mu.Lock()
	c.groups[groupID] = meta
	c.mu.Unlock()

	c.logger.Debug("cached group metadata", "group", groupID, "variables", len(meta.order))
	return meta.labels, meta.order, nil
}
