package dto

import "game-exploration-be/pkg/exploration/debuglog"

type ProviderLogResponse struct {
	Capacity int              `json:"capacity"`
	Entries  []debuglog.Entry `json:"entries"`
}
