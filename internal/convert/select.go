package convert

import (
	"strconv"
	"strings"

	"rec2vtt/internal/odvd"
)

// ResolveMessage maps a selector to the data type that drives the timeline.
// A numeric selector is accepted even when the registry has no descriptor for
// it; such runs skip every selected envelope as a schema mismatch. Names must
// resolve.
func ResolveMessage(reg *odvd.Registry, selector string) (int32, *odvd.Descriptor, error) {
	selector = strings.TrimSpace(selector)
	if id, err := strconv.ParseInt(selector, 10, 32); err == nil {
		desc, _ := reg.Lookup(int32(id))
		return int32(id), desc, nil
	}
	desc, err := reg.Select(selector)
	if err != nil {
		return 0, nil, err
	}
	return desc.ID, desc, nil
}
