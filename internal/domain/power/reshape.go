package power

// groupWidth is the number of metric columns per category group.
const groupWidth = 4

// minVectorLen is one discarded totals group plus the five category groups.
const minVectorLen = groupWidth * 6

// Reshape turns a flat engine power vector into a categorized report.
//
// The leading 4-value group is the engine's own pre-aggregated totals and is
// discarded: the report's total row is always recomputed from the category
// breakdown. The remaining 4-value groups map, in order, to sequential,
// combinational, clock, macro and pad; any groups past the fifth are extra
// pad instances and are summed metric-wise into the pad category.
//
// Reshape is pure: same input, same output, no side effects.
func Reshape(vec RawPowerVector) (PowerReport, error) {
	if len(vec)%groupWidth != 0 {
		return nil, &ShapeMismatchError{Length: len(vec), Reason: "not a multiple of 4"}
	}
	if len(vec) < minVectorLen {
		return nil, &ShapeMismatchError{Length: len(vec), Reason: "shorter than one totals group plus five category groups"}
	}

	groups := vec[groupWidth:]
	byCategory := make(map[Category][]float64, len(GroupOrder))
	for i, cat := range GroupOrder {
		g := groups[i*groupWidth : (i+1)*groupWidth]
		byCategory[cat] = append([]float64(nil), g...)
	}
	// Extra groups belong to additional pad instances.
	for i := len(GroupOrder); i*groupWidth < len(groups); i++ {
		g := groups[i*groupWidth : (i+1)*groupWidth]
		pad := byCategory[CategoryPad]
		for m := range pad {
			pad[m] += g[m]
		}
	}

	report := make(PowerReport, len(MetricOrder))
	for mi, metric := range MetricOrder {
		row := make(map[Category]float64, len(CategoryOrder))
		sum := 0.0
		for _, cat := range GroupOrder {
			v := byCategory[cat][mi]
			row[cat] = v
			sum += v
		}
		row[CategoryTotal] = sum
		report[metric] = row
	}
	return report, nil
}
