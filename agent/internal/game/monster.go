package game

// Monster is one observed large monster.
type Monster struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Health    float64   `json:"health"`
	MaxHealth float64   `json:"max_health"`
	IsTarget  bool      `json:"is_target"`
	IsEnraged bool      `json:"is_enraged"`
	Crown     string    `json:"crown,omitempty"`
	Parts     []Part    `json:"parts"`
	Ailments  []Ailment `json:"ailments"`
}

// Part is one observed monster part.
type Part struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Health      float64 `json:"health"`
	MaxHealth   float64 `json:"max_health"`
	BrokenCount int     `json:"broken_count"`
	IsRemovable bool    `json:"is_removable"`
}

// Ailment is one observed status ailment.
type Ailment struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Buildup     float64 `json:"buildup"`
	MaxBuildup  float64 `json:"max_buildup"`
	Duration    float64 `json:"duration"`
	MaxDuration float64 `json:"max_duration"`
	Counter     int     `json:"counter"`
	IsActive    bool    `json:"is_active"`
}

// Tick is one observation of every monster slot. A nil slot is empty.
type Tick struct {
	Slots []*Monster `json:"slots"`
}
