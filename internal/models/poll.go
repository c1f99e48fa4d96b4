package models

// Poll is keyed by its question text.
type Poll struct {
	Question string `json:"question" msgpack:"question"`
	YesVotes uint64 `json:"yes_votes" msgpack:"yes_votes"`
	NoVotes  uint64 `json:"no_votes" msgpack:"no_votes"`
}

// Config is written once at instantiation.
type Config struct {
	AdminAddress string `json:"admin_address" msgpack:"admin_address"`
}

type ContractInfo struct {
	Contract string `json:"contract" msgpack:"contract"`
	Version  string `json:"version" msgpack:"version"`
}

type PollResponse struct {
	Poll *Poll `json:"poll"`
}
