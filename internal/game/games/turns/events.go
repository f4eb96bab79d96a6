package turns

type gameStartedPayload struct {
	Players     []string `json:"players"`
	PlayerCount int      `json:"playerCount"`
}

type turnStartedPayload struct {
	PlayerID  string `json:"playerId"`
	RollsLeft int    `json:"rollsLeft"`
	Credits   int    `json:"credits"`
	Score     int    `json:"score"`
	Health    int    `json:"health"`
}

type turnEndedPayload struct {
	PreviousPlayerID string `json:"previousPlayerId"`
	NextPlayerID     string `json:"nextPlayerId"`
	Score            int    `json:"score"`
	Credits          int    `json:"credits"`
	RollsLeft        int    `json:"rollsLeft"`
	Health           int    `json:"health"`
}

type diceRolledPayload struct {
	PlayerID  string `json:"playerId"`
	ThingID   string `json:"thingId"`
	Roll      int    `json:"roll"`
	RollsLeft int    `json:"rollsLeft"`
	Credits   int    `json:"credits"`
	Score     int    `json:"score"`
	Health    int    `json:"health"`
}

type playerRemovedPayload struct {
	PlayerID    string `json:"playerId"`
	PlayerCount int    `json:"playerCount"`
}

type gameOverPayload struct {
	Reason string `json:"reason"`
}
