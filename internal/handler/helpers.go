package handler

import (
	"errors"
	"net/http"
	"reflect"
	"strconv"

	"github.com/koouhz/beefybeer-sub000/internal/apierror"
	"github.com/koouhz/beefybeer-sub000/internal/middleware"
	"github.com/koouhz/beefybeer-sub000/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

var validate = validator.New()

func init() {
	// Register decimal.Decimal as a numeric type so that validator tags like
	// min=0, gt=0, required work without panicking ("Bad field type decimal.Decimal").
	validate.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if v, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := v.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})
}

// bindAndValidate binds JSON body and runs go-playground/validator tags.
// Returns false and writes the error response if validation fails;
// the caller should return immediately without writing another response.
func bindAndValidate(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("JSON invalido: "+err.Error()))
		return false
	}
	return runValidation(c, req)
}

// bindQuery is bindAndValidate for query-string filters.
func bindQuery(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindQuery(req); err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("Parametros invalidos: "+err.Error()))
		return false
	}
	return runValidation(c, req)
}

func runValidation(c *gin.Context, req interface{}) bool {
	if err := validate.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			c.JSON(http.StatusBadRequest, apierror.New(err.Error()))
			return false
		}
		fields := make(map[string]string)
		for _, fe := range verrs {
			fields[fe.Field()] = fe.Tag()
		}
		c.JSON(http.StatusUnprocessableEntity, apierror.NewValidation(fields))
		return false
	}
	return true
}

func paramUUID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("ID invalido"))
		return uuid.Nil, false
	}
	return id, true
}

func paramNumero(c *gin.Context, name string) (int, bool) {
	n, err := strconv.Atoi(c.Param(name))
	if err != nil || n < 1 {
		c.JSON(http.StatusBadRequest, apierror.New("Numero invalido"))
		return 0, false
	}
	return n, true
}

// respondError maps engine errors to HTTP responses. Unknown errors are
// handed to middleware.ErrorHandler, which logs them and answers a generic 500.
func respondError(c *gin.Context, err error) {
	var stockErr *service.StockInsuficienteError
	switch {
	case errors.Is(err, service.ErrCompensacionFallida):
		requestID := c.GetString(middleware.RequestIDKey)
		log.Error().Err(err).
			Str("request_id", requestID).
			Msg("operación abortada con compensación fallida")
		c.JSON(http.StatusInternalServerError,
			apierror.New("La operacion fallo y no pudo revertirse por completo: se requiere conciliacion manual del inventario").
				ConRequestID(requestID))
	case errors.As(err, &stockErr):
		c.JSON(http.StatusConflict, apierror.NewStock(err.Error(), stockErr.Faltantes))
	case errors.Is(err, service.ErrNoEncontrado):
		c.JSON(http.StatusNotFound, apierror.New(err.Error()))
	case errors.Is(err, service.ErrTransicionInvalida),
		errors.Is(err, service.ErrVentaDuplicada),
		errors.Is(err, service.ErrPedidoConVenta),
		errors.Is(err, service.ErrPedidoCerrado),
		errors.Is(err, service.ErrConflictoConcurrente),
		errors.Is(err, service.ErrYaExiste):
		c.JSON(http.StatusConflict, apierror.New(err.Error()))
	case errors.Is(err, service.ErrPedidoSinItems),
		errors.Is(err, service.ErrCantidadInvalida),
		errors.Is(err, service.ErrEstadoInvalido):
		c.JSON(http.StatusUnprocessableEntity, apierror.New(err.Error()))
	default:
		_ = c.Error(err)
	}
}
