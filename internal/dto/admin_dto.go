package dto

type AuditLogItem struct {
	ID        uint    `json:"id"`
	ActorID   *uint   `json:"actor_id"`
	Action    string  `json:"action"`
	TargetID  *string `json:"target_id"`
	Details   any     `json:"details,omitempty"`
	IPAddress *string `json:"ip_address,omitempty"`
	CreatedAt string  `json:"created_at"`
}

type SetSiteInfoRequest struct {
	Value       string  `json:"value"       validate:"max=2000"`
	Description *string `json:"description" validate:"omitempty,max=300"`
}
