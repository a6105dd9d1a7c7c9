package payment

import "errors"

var (
	ErrForbidden      = errors.New("caller may not access this school's orders")
	ErrSchoolRequired = errors.New("school id is required")
	ErrNoCollectRef   = errors.New("order has no collect request reference yet")
)
