package tree

// GenerationSettings controls the continuation pipeline. Janus selects the
// parallel dispatch mode (one backend call per continuation); Adaptive splits
// each completion at its lowest-confidence token into a child/grandchild pair.
type GenerationSettings struct {
	NumContinuations int     `json:"num_continuations"`
	Temperature      float64 `json:"temperature"`
	TopP             float64 `json:"top_p"`
	ResponseLength   int     `json:"response_length"`
	PromptLength     int     `json:"prompt_length"`
	Janus            bool    `json:"janus"`
	Adaptive         bool    `json:"adaptive"`
	Model            string  `json:"model"`
	Memory           string  `json:"memory"`
}

// VisualizationSettings are opaque to the core model; they are carried through
// persistence for the benefit of rendering clients.
type VisualizationSettings struct {
	TextWidth     int  `json:"textwidth"`
	LeafDist      int  `json:"leafdist"`
	LevelDistance int  `json:"leveldistance"`
	TextSize      int  `json:"textsize"`
	Horizontal    bool `json:"horizontal"`
	DisplayText   bool `json:"displaytext"`
	ShowButtons   bool `json:"showbuttons"`
}

func DefaultGenerationSettings() GenerationSettings {
	return GenerationSettings{
		NumContinuations: 4,
		Temperature:      0.9,
		TopP:             1,
		ResponseLength:   100,
		PromptLength:     6000,
		Model:            "davinci",
	}
}

func DefaultVisualizationSettings() VisualizationSettings {
	return VisualizationSettings{
		TextWidth:     450,
		LeafDist:      200,
		LevelDistance: 150,
		TextSize:      10,
		Horizontal:    true,
		DisplayText:   true,
		ShowButtons:   true,
	}
}
