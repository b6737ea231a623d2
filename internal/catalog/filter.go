package catalog

import "strings"

type FilterOptions struct {
	Families  []string
	FreeWords string
}

// Filter returns fabrics matching every given option. Family matching is
// case-insensitive; each free word must appear in the family, variant or id.
func Filter(fabrics []Fabric, opt FilterOptions) []Fabric {
	out := []Fabric{}
	for _, f := range fabrics {
		if len(opt.Families) > 0 {
			matched := false
			for _, fam := range opt.Families {
				if strings.EqualFold(f.Family, strings.TrimSpace(fam)) {
					matched = true
					break
				}
			}
			if !matched {
				continue
			}
		}
		if opt.FreeWords != "" {
			hay := strings.ToLower(f.Family + " " + f.Variant + " " + f.ID)
			ok := true
			for _, k := range strings.Fields(opt.FreeWords) {
				if !strings.Contains(hay, strings.ToLower(k)) {
					ok = false
					break
				}
			}
			if !ok {
				continue
			}
		}
		out = append(out, f)
	}
	return out
}
