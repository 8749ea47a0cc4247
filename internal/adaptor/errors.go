package adaptor

import (
	"net/http"

	"service-marketplace/pkg/apperror"
	"service-marketplace/pkg/utils"

	"go.uber.org/zap"
)

// writeServiceError maps a usecase error onto the response envelope.
// Only application errors carry their message to the client.
func writeServiceError(w http.ResponseWriter, log *zap.Logger, err error, operation string) {
	appErr, ok := apperror.As(err)
	if !ok || appErr.Kind == apperror.KindInternal {
		log.Error("Failed to "+operation, zap.Error(err), zap.String("operation", operation))
		utils.ResponseInternalError(w, "Internal server error")
		return
	}

	status := appErr.HTTPStatus()
	fields := []zap.Field{
		zap.Error(err),
		zap.String("operation", operation),
		zap.String("code", string(appErr.Code)),
	}
	if status >= http.StatusInternalServerError {
		log.Error(operation+" failed", fields...)
	} else {
		log.Warn(operation+" failed", fields...)
	}

	utils.ResponseJSON(w, status, false, appErr.Message, nil, map[string]string{"code": string(appErr.Code)})
}
