package transport

import "encoding/json"

type CreateProductRequest struct {
	Name      string      `json:"name"      form:"name"`
	Category  string      `json:"category"  form:"category"`
	Price     json.Number `json:"price"     form:"price"`
	Image     string      `json:"image"     form:"image"`
	Processor string      `json:"processor" form:"processor"`
	RAM       string      `json:"ram"       form:"ram"`
	Storage   string      `json:"storage"   form:"storage"`
	Display   string      `json:"display"   form:"display"`
	Condition string      `json:"condition" form:"condition"`
	InStock   *bool       `json:"in_stock"  form:"in_stock"`
}

// PatchProductRequest leaves nil fields untouched.
type PatchProductRequest struct {
	Name      *string      `json:"name"      form:"name"`
	Category  *string      `json:"category"  form:"category"`
	Price     *json.Number `json:"price"     form:"price"`
	Image     *string      `json:"image"     form:"image"`
	Processor *string      `json:"processor" form:"processor"`
	RAM       *string      `json:"ram"       form:"ram"`
	Storage   *string      `json:"storage"   form:"storage"`
	Display   *string      `json:"display"   form:"display"`
	Condition *string      `json:"condition" form:"condition"`
	InStock   *bool        `json:"in_stock"  form:"in_stock"`
}

type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type AddToCartRequest struct {
	ProductID string `json:"product_id"`
}

type UpdateQuantityRequest struct {
	Quantity *int `json:"quantity"`
}

type CheckoutResponse struct {
	URL     string `json:"url"`
	Message string `json:"message"`
}

type PageMeta struct {
	Page       int   `json:"page"`
	Size       int   `json:"size"`
	Total      int64 `json:"total"`
	TotalPages int64 `json:"total_pages"`
	HasPrev    bool  `json:"has_prev"`
	HasNext    bool  `json:"has_next"`
}
