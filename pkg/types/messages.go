package types

// POST /sessions
type CreateSessionRequest struct {
	Name    string     `json:"name"`
	Rules   *RulesView `json:"rules,omitempty"` // nil means default rules
	Players []string   `json:"players"`         // display names in seat order
}

type CreateSessionResponse struct {
	Code string `json:"code"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
