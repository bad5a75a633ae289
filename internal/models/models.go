package models

import (
	"time"

	"github.com/shopspring/decimal"
)

func init() {
	// Prices and costs go to the client as JSON numbers.
	decimal.MarshalJSONWithoutQuotes = true
}

type Role string

const (
	RoleAdmin  Role = "admin"
	RoleMaster Role = "master"
)

func (r Role) Valid() bool { return r == RoleAdmin || r == RoleMaster }

type User struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Name      string    `gorm:"size:100;uniqueIndex;not null" json:"name"`
	PINHash   string    `gorm:"column:pin_hash;not null" json:"-"`
	Role      Role      `gorm:"size:16;not null;default:master" json:"role"`
	IsActive  bool      `gorm:"not null;default:true" json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Tobacco struct {
	ID              uint            `gorm:"primaryKey;autoIncrement" json:"id"`
	Brand           string          `gorm:"size:100;not null;uniqueIndex:idx_tobacco_identity" json:"brand"`
	Line            *string         `gorm:"size:100;uniqueIndex:idx_tobacco_identity" json:"line"`
	Name            string          `gorm:"size:100;not null;uniqueIndex:idx_tobacco_identity" json:"name"`
	Strength        *int            `json:"strength"`
	CurrentWeight   float64         `gorm:"not null;default:0" json:"current_weight"`
	ThresholdWeight float64         `gorm:"not null;default:50" json:"threshold_weight"`
	PricePerGram    decimal.Decimal `gorm:"type:numeric(12,4);not null;default:0" json:"price_per_gram"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// FullName renders "Brand Line - Name", omitting an empty line.
func (t Tobacco) FullName() string {
	if t.Line != nil && *t.Line != "" {
		return t.Brand + " " + *t.Line + " - " + t.Name
	}
	return t.Brand + " - " + t.Name
}

// Session is one served bowl. Items hold the price that was in effect when
// the bowl was mixed.
type Session struct {
	ID          uint            `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID      uint            `gorm:"index;not null" json:"user_id"`
	User        *User           `gorm:"foreignKey:UserID" json:"-"`
	TableNumber *string         `gorm:"size:20" json:"table_number"`
	TotalCost   decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0" json:"total_cost"`
	TotalGrams  float64         `gorm:"not null;default:0" json:"total_grams"`
	Items       []SessionItem   `gorm:"foreignKey:SessionID" json:"items,omitempty"`
	CreatedAt   time.Time       `gorm:"index" json:"created_at"`
}

func (Session) TableName() string { return "hookah_sessions" }

type SessionItem struct {
	ID           uint            `gorm:"primaryKey;autoIncrement" json:"id"`
	SessionID    uint            `gorm:"index;not null" json:"session_id"`
	TobaccoID    uint            `gorm:"index;not null" json:"tobacco_id"`
	Tobacco      *Tobacco        `gorm:"foreignKey:TobaccoID" json:"-"`
	GramsUsed    float64         `gorm:"not null" json:"grams_used"`
	PricePerGram decimal.Decimal `gorm:"type:numeric(12,4);not null;default:0" json:"price_per_gram"`
	Cost         decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0" json:"cost"`
}

type MovementKind string

const (
	MovementCreate      MovementKind = "create"
	MovementRestock     MovementKind = "restock"
	MovementCorrection  MovementKind = "correction"
	MovementConsumption MovementKind = "consumption"
	MovementRestore     MovementKind = "restore"
)

// StockMovement is the append-only cost and weight history of a tobacco.
type StockMovement struct {
	ID           int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	TobaccoID    uint            `gorm:"index;not null" json:"tobacco_id"`
	UserID       *uint           `json:"user_id,omitempty"`
	SessionID    *uint           `gorm:"index" json:"session_id,omitempty"`
	Kind         MovementKind    `gorm:"size:16;not null" json:"kind"`
	DeltaGrams   float64         `gorm:"not null" json:"delta_grams"`
	WeightBefore float64         `gorm:"not null" json:"weight_before"`
	WeightAfter  float64         `gorm:"not null" json:"weight_after"`
	PriceBefore  decimal.Decimal `gorm:"type:numeric(12,4);not null;default:0" json:"price_before"`
	PriceAfter   decimal.Decimal `gorm:"type:numeric(12,4);not null;default:0" json:"price_after"`
	Cost         decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0" json:"cost"`
	Metadata     JSONB           `gorm:"type:jsonb" json:"metadata"`
	CreatedAt    time.Time       `gorm:"index" json:"created_at"`
}

// AuthSession backs an issued token; the token is only honoured while its
// row exists and is neither revoked nor expired.
type AuthSession struct {
	JTI       string     `gorm:"primaryKey;size:64" json:"jti"`
	UserID    uint       `gorm:"index;not null" json:"user_id"`
	ExpiresAt time.Time  `gorm:"not null" json:"expires_at"`
	RevokedAt *time.Time `json:"revoked_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// All lists every model managed by AutoMigrate.
func All() []any {
	return []any{&User{}, &Tobacco{}, &Session{}, &SessionItem{}, &StockMovement{}, &AuthSession{}}
}
