package types

// Entity records mirror the shapes the game client sends. The bridge treats
// them as opaque payloads except for chat message identity (update-in-place
// matching) and roll dice values (ladder presentation).

type ActorRecord struct {
	ID           string         `json:"id"`
	Name         string         `json:"name"`
	Kind         string         `json:"type,omitempty"`
	Img          string         `json:"img,omitempty"`
	FatePoints   int            `json:"fatePoints"`
	Refresh      int            `json:"refresh,omitempty"`
	Skills       map[string]int `json:"skills,omitempty"`
	Aspects      []Aspect       `json:"aspects,omitempty"`
	Stress       []StressTrack  `json:"stress,omitempty"`
	Consequences []Consequence  `json:"consequences,omitempty"`
}

type Aspect struct {
	Name        string `json:"name"`
	Kind        string `json:"type,omitempty"`
	FreeInvokes int    `json:"freeInvokes,omitempty"`
}

type StressTrack struct {
	Name  string `json:"name"`
	Boxes []bool `json:"boxes"`
}

type Consequence struct {
	Severity string `json:"severity"`
	Text     string `json:"text,omitempty"`
}

type ChatRecord struct {
	ID        string       `json:"id"`
	Speaker   string       `json:"speaker,omitempty"`
	Content   string       `json:"content,omitempty"`
	Timestamp int64        `json:"timestamp,omitempty"`
	Rolls     []RollRecord `json:"rolls,omitempty"`
}

type RollRecord struct {
	Formula string `json:"formula,omitempty"`
	Total   int    `json:"total"`
	Dice    []int  `json:"dice,omitempty"`
}

type SceneRecord struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Background string   `json:"background,omitempty"`
	Aspects    []Aspect `json:"aspects,omitempty"`
}

type CombatRecord struct {
	ID         string      `json:"id"`
	Round      int         `json:"round"`
	Turn       int         `json:"turn"`
	Combatants []Combatant `json:"combatants,omitempty"`
}

type Combatant struct {
	ActorID    string `json:"actorId,omitempty"`
	Name       string `json:"name"`
	Initiative int    `json:"initiative"`
	Defeated   bool   `json:"defeated,omitempty"`
}
