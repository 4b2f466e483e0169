//go:build property

package manifest

import (
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func TestDedupAreasProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	areaGen := gen.SliceOf(gen.OneConstOf("header", "HEADER", "Footer", "footer", "sidebar-1", "", " Nav "))

	properties.Property("ids are unique and lowercase", prop.ForAll(
		func(ids []string) bool {
			in := make([]AreaInfo, len(ids))
			for i, id := range ids {
				in[i] = AreaInfo{ID: id}
			}
			seen := map[string]bool{}
			for _, a := range DedupAreas(in) {
				if seen[a.ID] || a.ID != strings.ToLower(a.ID) {
					return false
				}
				seen[a.ID] = true
			}
			return true
		},
		areaGen,
	))

	properties.Property("dedup is idempotent", prop.ForAll(
		func(ids []string) bool {
			in := make([]AreaInfo, len(ids))
			for i, id := range ids {
				in[i] = AreaInfo{ID: id, Name: id}
			}
			once := DedupAreas(in)
			twice := DedupAreas(once)
			if len(once) != len(twice) {
				return false
			}
			for i := range once {
				if once[i] != twice[i] {
					return false
				}
			}
			return true
		},
		areaGen,
	))

	properties.TestingRun(t)
}
