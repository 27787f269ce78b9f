package model

import "time"

// 管理操作の種類。
type AuditAction string

const (
	//配送ステータスを更新した操作。
	AuditActionUpdateFulfillment AuditAction = "UPDATE_FULFILLMENT_STATUS"
)

// 何に対する操作か
type AuditResourceType string

const (
	//注文に対する操作。
	AuditResourceOrder AuditResourceType = "order"
)

// 監査ログ（管理者操作ログ）。
// 「誰が」「何を」「どの対象に」「どう変えたか」を残す。
type AuditLog struct {
	ID int64 `gorm:"primaryKey;autoIncrement" json:"id"`

	//操作した管理者のID。
	ActorUserID int64 `gorm:"not null;index" json:"actor_user_id"`

	Action       AuditAction       `gorm:"type:varchar(50);not null;index" json:"action"`
	ResourceType AuditResourceType `gorm:"type:varchar(50);not null;index" json:"resource_type"`

	//対象注文の公開ID。
	ResourceRef string `gorm:"type:varchar(64);not null;index" json:"resource_ref"`

	//JSON文字列で保存する。
	BeforeJSON string `gorm:"type:text" json:"before_json"`
	AfterJSON  string `gorm:"type:text" json:"after_json"`

	CreatedAt time.Time `gorm:"not null;index" json:"created_at"`
}
