package models

import "github.com/smazurov/ucmd/internal/ucm"

// Health check models
type HealthData struct {
	Status  string `json:"status" example:"ok" doc:"Service status"`
	Message string `json:"message" example:"API is healthy" doc:"Status message"`
	Open    int    `json:"open_cards" example:"1" doc:"Number of cards with an open session"`
}

type HealthResponse struct {
	Body HealthData
}

// Version models
type VersionData struct {
	Name      string `json:"name" example:"ucmd" doc:"Application name"`
	Version   string `json:"version" example:"dev" doc:"Application version"`
	GitCommit string `json:"git_commit" example:"abc1234" doc:"Git commit SHA"`
	BuildDate string `json:"build_date" example:"2024-12-15 14:30" doc:"Build timestamp"`
	BuildID   string `json:"build_id" example:"a1b2c3d4" doc:"Unique build identifier"`
	GoVersion string `json:"go_version" example:"go1.24.0" doc:"Go compiler version"`
	Compiler  string `json:"compiler" example:"gc" doc:"Compiler used"`
	Platform  string `json:"platform" example:"linux/arm64" doc:"Platform"`
}

type VersionResponse struct {
	Body VersionData
}

// Card models
type CardData struct {
	Name        string `json:"name" example:"snd_soc_msm" doc:"Card name"`
	Number      int    `json:"number" example:"0" doc:"Kernel card number"`
	ControlPath string `json:"control_path" example:"/dev/snd/controlC0" doc:"Mixer control device"`
	ConfigDir   string `json:"config_dir" example:"/etc/ucmd/usecases" doc:"Directory holding the card's master and verb files"`
	Master      string `json:"master,omitempty" example:"snd_soc_msm" doc:"Master file name, if it differs from the card name"`
	Open        bool   `json:"open" example:"true" doc:"Whether a session is open for this card"`
}

type CardListData struct {
	Cards []CardData `json:"cards" doc:"Registered cards"`
	Count int        `json:"count" example:"1" doc:"Number of registered cards"`
}

type CardListResponse struct {
	Body CardListData
}

type CardPath struct {
	Card string `path:"card" minLength:"1" example:"snd_soc_msm" doc:"Card name"`
}

type CardResponse struct {
	Body CardData
}

// Session state models
type StateData struct {
	Card             string   `json:"card" example:"snd_soc_msm" doc:"Card name"`
	ParseComplete    bool     `json:"parse_complete" example:"true" doc:"Whether every verb file has been parsed"`
	CurrentVerb      string   `json:"current_verb" example:"HiFi" doc:"Active verb"`
	EnabledDevices   []string `json:"enabled_devices" doc:"Enabled devices, in enable order"`
	EnabledModifiers []string `json:"enabled_modifiers" doc:"Enabled modifiers, in enable order"`
	ParseErrors      []string `json:"parse_errors,omitempty" doc:"Verb files that failed to parse"`
}

type StateResponse struct {
	Body StateData
}

// Identifier query models
type GetValueRequest struct {
	CardPath
	Identifier string `query:"identifier" example:"_verb" doc:"Identifier to read; empty returns the card name"`
}

type GetListRequest struct {
	CardPath
	Identifier string `query:"identifier" example:"_devices/HiFi" doc:"List identifier; empty lists registered cards"`
}

type GetStatusRequest struct {
	CardPath
	Identifier string `query:"identifier" required:"true" minLength:"1" example:"_devstatus/Speaker" doc:"Status identifier"`
}

type ValueData struct {
	Card       string `json:"card" example:"snd_soc_msm" doc:"Card name"`
	Identifier string `json:"identifier" example:"_verb" doc:"Identifier that was read"`
	Value      string `json:"value" example:"HiFi" doc:"Current value"`
}

type ValueResponse struct {
	Body ValueData
}

type ListData struct {
	Card       string   `json:"card" example:"snd_soc_msm" doc:"Card name"`
	Identifier string   `json:"identifier" example:"_verbs" doc:"Identifier that was listed"`
	Values     []string `json:"values" doc:"List entries"`
	Count      int      `json:"count" example:"3" doc:"Number of entries"`
}

type ListResponse struct {
	Body ListData
}

type StatusData struct {
	Card       string `json:"card" example:"snd_soc_msm" doc:"Card name"`
	Identifier string `json:"identifier" example:"_devstatus/Speaker" doc:"Identifier that was read"`
	Status     int    `json:"status" example:"1" doc:"Status value"`
}

type StatusResponse struct {
	Body StatusData
}

type SetValueRequestData struct {
	Identifier string `json:"identifier" minLength:"1" example:"_enadev" doc:"Identifier to set"`
	Value      string `json:"value" example:"Speaker" doc:"Value to apply"`
}

type SetValueRequest struct {
	CardPath
	Body SetValueRequestData
}

// Dump models
type DumpResponse struct {
	Body ucm.CardSnapshot
}

// Log level models
type LogLevelsData struct {
	Levels map[string]string `json:"levels" doc:"Effective level per logging module"`
}

type LogLevelsResponse struct {
	Body LogLevelsData
}

type SetLogLevelRequestData struct {
	Module string `json:"module" minLength:"1" example:"mixer" doc:"Logging module"`
	Level  string `json:"level" enum:"debug,info,warn,error" example:"debug" doc:"New level"`
}

type SetLogLevelRequest struct {
	Body SetLogLevelRequestData
}
