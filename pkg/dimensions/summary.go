package dimensions

// Summary is the complete package measurement set.
type Summary struct {
	LengthCM float64 `json:"length_cm" yaml:"length_cm"`
	WidthCM  float64 `json:"width_cm" yaml:"width_cm"`
	HeightCM float64 `json:"height_cm" yaml:"height_cm"`
	WeightKG float64 `json:"weight_kg" yaml:"weight_kg"`
}

// Summarize returns a Summary only when all four kinds are present.
func Summarize(dims map[Kind]Dimension) (*Summary, bool) {
	for _, k := range Kinds {
		if _, ok := dims[k]; !ok {
			return nil, false
		}
	}
	return &Summary{
		LengthCM: dims[Length].Number,
		WidthCM:  dims[Width].Number,
		HeightCM: dims[Height].Number,
		WeightKG: dims[Weight].Number,
	}, true
}
