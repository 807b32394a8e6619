package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Action tags an audit record.
type Action string

const (
	ActionLogin            Action = "LOGIN"
	ActionLogout           Action = "LOGOUT"
	ActionRegister         Action = "REGISTER"
	ActionCreateProduct    Action = "CREATE_PRODUCT"
	ActionUpdateProduct    Action = "UPDATE_PRODUCT"
	ActionDeleteProduct    Action = "DELETE_PRODUCT"
	ActionCreateSale       Action = "CREATE_SALE"
	ActionUpdateSaleStatus Action = "UPDATE_SALE_STATUS"
	ActionAddToCart        Action = "ADD_TO_CART"
	ActionRemoveFromCart   Action = "REMOVE_FROM_CART"
	ActionUpdateCart       Action = "UPDATE_CART"
	ActionClearCart        Action = "CLEAR_CART"
	ActionCreateComment    Action = "CREATE_COMMENT"
	ActionUpdateProfile    Action = "UPDATE_PROFILE"
	ActionUpdateAvatar     Action = "UPDATE_AVATAR"
	ActionRemoveAvatar     Action = "REMOVE_AVATAR"
	ActionUpdateStock      Action = "UPDATE_STOCK"
	ActionPurgeCarts       Action = "PURGE_EMPTY_CARTS"
)

var knownActions = map[Action]bool{
	ActionLogin: true, ActionLogout: true, ActionRegister: true,
	ActionCreateProduct: true, ActionUpdateProduct: true, ActionDeleteProduct: true,
	ActionCreateSale: true, ActionUpdateSaleStatus: true,
	ActionAddToCart: true, ActionRemoveFromCart: true, ActionUpdateCart: true, ActionClearCart: true,
	ActionCreateComment: true, ActionUpdateProfile: true, ActionUpdateAvatar: true, ActionRemoveAvatar: true,
	ActionUpdateStock: true, ActionPurgeCarts: true,
}

func (a Action) Valid() bool { return knownActions[a] }

// AnonymousActor is recorded when no authenticated user performed the action.
const AnonymousActor = "anonymous"

type AuditRecord struct {
	ID     primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Action Action             `bson:"action" json:"action"`
	Actor  string             `bson:"actor" json:"actor"`
	Detail string             `bson:"detail" json:"detail"`
	At     time.Time          `bson:"at" json:"at"`
	Extra  map[string]any     `bson:"extra" json:"extra,omitempty"`
}

type AuditFilter struct {
	Action Action
	// Actor matches as a case-insensitive substring.
	Actor string
	From  *time.Time
	To    *time.Time
}

type ActionCount struct {
	Action Action `bson:"_id" json:"action"`
	Count  int    `bson:"count" json:"count"`
}
