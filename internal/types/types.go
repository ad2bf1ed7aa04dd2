package types

import (
	"fmt"

	"github.com/DoyleJ11/mahjong-settlement/internal/engine"
	"github.com/DoyleJ11/mahjong-settlement/internal/session"
	pkgtypes "github.com/DoyleJ11/mahjong-settlement/pkg/types"
)

// ClientMessage is a session command as sent over the websocket or posted to
// /sessions/{code}/commands. Only the fields of the named type are read.
type ClientMessage struct {
	Type            string                `json:"type"`
	PlayerID        string                `json:"player_id,omitempty"`
	Name            string                `json:"name,omitempty"`
	ChipCount       *int64                `json:"chip_count,omitempty"`
	RoundID         string                `json:"round_id,omitempty"`
	ActivePlayerIDs []string              `json:"active_player_ids,omitempty"`
	Scores          map[string]int64      `json:"scores,omitempty"`
	Busters         map[string]string     `json:"busters,omitempty"`
	Expense         *pkgtypes.ExpenseView `json:"expense,omitempty"`
	ExpenseID       string                `json:"expense_id,omitempty"`
	Rules           *pkgtypes.RulesView   `json:"rules,omitempty"`
	Revision        int                   `json:"revision"`
}

type ServerMessage struct {
	Type    string                `json:"type"` // "StateSnapshot" | "Error"
	Version int                   `json:"version,omitempty"`
	Session *pkgtypes.SessionView `json:"session,omitempty"`
	Error   string                `json:"error,omitempty"`
}

// ToCommand maps the wire message onto a session command.
func (m ClientMessage) ToCommand() (session.Command, error) {
	cmd := session.Command{
		Type:            session.CommandType(m.Type),
		PlayerID:        m.PlayerID,
		Name:            m.Name,
		ChipCount:       m.ChipCount,
		RoundID:         m.RoundID,
		ActivePlayerIDs: m.ActivePlayerIDs,
		Scores:          m.Scores,
		Busters:         m.Busters,
		ExpenseID:       m.ExpenseID,
		Revision:        m.Revision,
	}

	switch cmd.Type {
	case session.CmdAddPlayer, session.CmdRenamePlayer, session.CmdSetChipCount,
		session.CmdAddRound, session.CmdEditScores, session.CmdDeleteRound,
		session.CmdDeleteExpense:

	case session.CmdAddExpense:
		if m.Expense == nil {
			return session.Command{}, fmt.Errorf("%w: %s needs an expense", session.ErrInvalidCommand, m.Type)
		}
		cmd.Expense = engine.Expense{
			PayerID:     m.Expense.PayerID,
			Amount:      m.Expense.Amount,
			Description: m.Expense.Description,
			AllMembers:  m.Expense.AllMembers,
			TargetIDs:   m.Expense.TargetIDs,
		}

	case session.CmdUpdateRules:
		if m.Rules == nil {
			return session.Command{}, fmt.Errorf("%w: %s needs rules", session.ErrInvalidCommand, m.Type)
		}
		cmd.Rules = m.Rules.Engine()

	default:
		return session.Command{}, fmt.Errorf("%w %q", session.ErrUnsupportedCommand, m.Type)
	}
	return cmd, nil
}
