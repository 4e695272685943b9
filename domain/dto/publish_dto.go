package dto

// PublishRequest triggers publishing one content item to a set of linked
// platform configs. One result is returned per config id, in order.
type PublishRequest struct {
	ContentID string  `json:"content_id" binding:"required"`
	ConfigIDs []int64 `json:"config_ids" binding:"required"`
}

// PublishHistoryRequest filters the stored publish history.
type PublishHistoryRequest struct {
	ContentID string `form:"content_id"`
	Limit     int    `form:"limit"`
	Offset    int    `form:"offset"`
}

// PlatformCapability describes one registered platform for the dashboard.
type PlatformCapability struct {
	Platform         string `json:"platform"`
	SupportsRefresh  bool   `json:"supports_refresh"`
	MultiStepPublish bool   `json:"multi_step_publish"`
	MaxTextLength    int    `json:"max_text_length,omitempty"`
	MaxImages        int    `json:"max_images,omitempty"`
}
