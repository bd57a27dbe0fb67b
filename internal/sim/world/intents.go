package world

import "fmt"

// IntentKind and ActionKind are closed variant sets. Consumers switch over
// them exhaustively; adding a kind means visiting every switch.

type IntentKind uint8

const (
	IntentInspect IntentKind = iota + 1
	IntentNegotiate
	IntentDeployResource
)

func (k IntentKind) String() string {
	switch k {
	case IntentInspect:
		return "INSPECT"
	case IntentNegotiate:
		return "NEGOTIATE"
	case IntentDeployResource:
		return "DEPLOY_RESOURCE"
	}
	return fmt.Sprintf("intent(%d)", uint8(k))
}

func (k IntentKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *IntentKind) UnmarshalText(b []byte) error {
	switch string(b) {
	case "INSPECT":
		*k = IntentInspect
	case "NEGOTIATE":
		*k = IntentNegotiate
	case "DEPLOY_RESOURCE":
		*k = IntentDeployResource
	default:
		return fmt.Errorf("unknown intent kind %q", string(b))
	}
	return nil
}

// AgentIntent is one agent's declared move for the tick. Payload fields are
// populated per kind: District always, Resource for deployments, Faction for
// negotiations.
type AgentIntent struct {
	Agent    string     `json:"agent_id"`
	Kind     IntentKind `json:"kind"`
	District string     `json:"district_id"`
	Resource string     `json:"resource,omitempty"`
	Faction  string     `json:"faction_id,omitempty"`
}

type ActionKind uint8

const (
	ActionLobbyCouncil ActionKind = iota + 1
	ActionSabotageRival
)

func (k ActionKind) String() string {
	switch k {
	case ActionLobbyCouncil:
		return "LOBBY_COUNCIL"
	case ActionSabotageRival:
		return "SABOTAGE_RIVAL"
	}
	return fmt.Sprintf("action(%d)", uint8(k))
}

func (k ActionKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *ActionKind) UnmarshalText(b []byte) error {
	switch string(b) {
	case "LOBBY_COUNCIL":
		*k = ActionLobbyCouncil
	case "SABOTAGE_RIVAL":
		*k = ActionSabotageRival
	default:
		return fmt.Errorf("unknown action kind %q", string(b))
	}
	return nil
}

// FactionAction is one faction's move for the tick. Target names the rival
// for sabotage and is empty for self-directed actions; District is where the
// action lands (the actor's home for lobbying, the rival's for sabotage).
type FactionAction struct {
	Faction         string     `json:"faction_id"`
	Kind            ActionKind `json:"kind"`
	Target          string     `json:"target_id,omitempty"`
	District        string     `json:"district_id,omitempty"`
	LegitimacyDelta float64    `json:"legitimacy_delta"`
	InfluenceSpent  int        `json:"influence_spent,omitempty"`
}
