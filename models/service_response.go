package models

type ServiceResponse[T any] struct {
	Data  *T     `json:"data"`
	Error string `json:"error,omitempty"`
}

func GetServiceResponseOk[T any](data *T) ServiceResponse[T] {
	return ServiceResponse[T]{
		Data:  data,
		Error: "",
	}
}

func GetServiceResponseError(errorMessage string) ServiceResponse[any] {
	return ServiceResponse[any]{
		Data:  nil,
		Error: errorMessage,
	}
}

type Message struct {
	Message string `json:"message"`
}
