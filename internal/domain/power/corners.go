package power

// EnumerateCorners builds the full frequency x activity grid with frequency
// as the outer loop and activity as the inner loop, preserving input order.
// The order is a contract: it fixes the report file generation order.
// Duplicates are kept; empty inputs yield an empty grid.
func EnumerateCorners(frequenciesMHz, activities []float64) []Corner {
	corners := make([]Corner, 0, len(frequenciesMHz)*len(activities))
	for _, f := range frequenciesMHz {
		for _, a := range activities {
			corners = append(corners, Corner{FrequencyMHz: f, Activity: a})
		}
	}
	return corners
}

// TraceCorner builds the single corner of a trace-driven run.
func TraceCorner(frequencyMHz float64) Corner {
	return Corner{FrequencyMHz: frequencyMHz, TraceDriven: true}
}
