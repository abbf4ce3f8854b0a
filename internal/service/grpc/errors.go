package grpcsvc

import (
	"context"
	"errors"

	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/vladislavdragonenkov/dairy-oms/internal/domain"
)

// errorDomain попадает в ErrorInfo.Domain.
const errorDomain = "orders.conaprole.com"

// statusByCode сопоставляет коды доменных ошибок с gRPC-кодами.
// Коды, которых здесь нет, считаются ошибками входных данных.
var statusByCode = map[domain.Code]codes.Code{
	domain.ErrOrderNotFound.Code:       codes.NotFound,
	domain.ErrDistributorNotFound.Code: codes.NotFound,
	domain.ErrPointOfSaleNotFound.Code: codes.NotFound,
	domain.ErrProductNotFound.Code:     codes.NotFound,
	domain.ErrLineNotFound.Code:        codes.NotFound,

	domain.ErrDistributorExists.Code:       codes.AlreadyExists,
	domain.ErrPointOfSaleExists.Code:       codes.AlreadyExists,
	domain.ErrDuplicatedExternalID.Code:    codes.AlreadyExists,
	domain.ErrDuplicateProduct.Code:        codes.AlreadyExists,
	domain.ErrAlreadyAssigned.Code:         codes.AlreadyExists,
	domain.ErrCategoryAlreadyAssigned.Code: codes.AlreadyExists,

	domain.ErrCannotRemoveLastLine.Code:    codes.FailedPrecondition,
	domain.ErrStatusCreatedNotAllowed.Code: codes.FailedPrecondition,
	domain.ErrPointOfSaleInactive.Code:     codes.FailedPrecondition,
	domain.ErrPointOfSaleEnabled.Code:      codes.FailedPrecondition,
	domain.ErrPointOfSaleDisabled.Code:     codes.FailedPrecondition,
	domain.ErrDistributorNotAssigned.Code:  codes.FailedPrecondition,
	domain.ErrCategoryNotSupported.Code:    codes.FailedPrecondition,
	domain.ErrCategoryNotAssigned.Code:     codes.FailedPrecondition,
	domain.ErrCategoryDeprecated.Code:      codes.FailedPrecondition,
	domain.ErrCurrencyMismatch.Code:        codes.FailedPrecondition,
	domain.ErrNegativeResult.Code:          codes.FailedPrecondition,
}

// toStatus переводит ошибку сервиса в gRPC-статус. Для доменных ошибок код
// передаётся в ErrorInfo.Reason, клиенту не нужно разбирать текст сообщения.
func toStatus(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}

	switch {
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	case domain.IsVersionConflict(err):
		return status.Error(codes.Aborted, "concurrent modification, retry the request")
	}

	code, ok := domain.CodeOf(err)
	if !ok {
		return status.Error(codes.Internal, "internal error")
	}

	grpcCode, known := statusByCode[code]
	if !known {
		grpcCode = codes.InvalidArgument
	}
	st, detailErr := status.New(grpcCode, err.Error()).WithDetails(&errdetails.ErrorInfo{
		Reason: string(code),
		Domain: errorDomain,
	})
	if detailErr != nil {
		return status.Error(grpcCode, err.Error())
	}
	return st.Err()
}

// ReasonOf возвращает код доменной ошибки из ErrorInfo статуса.
func ReasonOf(err error) (domain.Code, bool) {
	st, ok := status.FromError(err)
	if !ok {
		return "", false
	}
	for _, detail := range st.Details() {
		if info, ok := detail.(*errdetails.ErrorInfo); ok {
			return domain.Code(info.GetReason()), true
		}
	}
	return "", false
}
