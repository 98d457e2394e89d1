package dto

import "net/http"

// BaseResponse is the envelope every endpoint returns. Data is omitted
// on errors and on acknowledgements that carry no payload.
type BaseResponse struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func NewSuccessResponse(message string, data interface{}) *BaseResponse {
	return &BaseResponse{
		Code:    http.StatusOK,
		Message: message,
		Data:    data,
	}
}

func NewErrorResponse(code int, message string) *BaseResponse {
	return &BaseResponse{
		Code:    code,
		Message: message,
	}
}

func NewBadRequestResponse(message string) *BaseResponse {
	return NewErrorResponse(http.StatusBadRequest, message)
}

func NewNotFoundResponse(message string) *BaseResponse {
	return NewErrorResponse(http.StatusNotFound, message)
}
