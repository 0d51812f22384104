package optimizer

import "hybrid-sizing/internal/model"

// Enumerate lists every non-empty pairing of at most one solar, one wind and one
// storage project per owner. Order is deterministic: owners as given, then solar,
// wind and storage in declaration order with "absent" first.
func Enumerate(owners []model.OwnerAssets) []model.Combination {
	var out []model.Combination
	for _, o := range owners {
		solar := options(o.Solar)
		wind := options(o.Wind)
		storage := options(o.Storage)
		for _, s := range solar {
			for _, w := range wind {
				for _, b := range storage {
					c := model.Combination{
						ID:      model.CombinationID{Owner: o.Owner, Solar: name(s), Wind: name(w), Storage: name(b)},
						Solar:   s,
						Wind:    w,
						Storage: b,
					}
					if c.ID.Empty() {
						continue
					}
					out = append(out, c)
				}
			}
		}
	}
	return out
}

func options(assets []model.CandidateAsset) []*model.CandidateAsset {
	out := make([]*model.CandidateAsset, 0, len(assets)+1)
	out = append(out, nil)
	for i := range assets {
		out = append(out, &assets[i])
	}
	return out
}

func name(a *model.CandidateAsset) string {
	if a == nil {
		return ""
	}
	return a.Name
}
