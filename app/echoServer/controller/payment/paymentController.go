package payment

import (
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"booklibrary/app/echoServer/jwtx"
	ps "booklibrary/service/payment"

	"github.com/labstack/echo/v4"
)

type Controller struct {
	Svc ps.Service
	Log *slog.Logger
}

// POST /v1/payments/stripe
//
// Settlement webhook. Responds 200 whether or not the session was recognized
// so the gateway cannot probe which sessions exist; 400 only for signature or
// payload failures.
func (h *Controller) HandleStripe(c echo.Context) error {
	sig := c.Request().Header.Get("Stripe-Signature")
	raw, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "unreadable body"})
	}

	if err := h.Svc.HandleSettlement(c.Request().Context(), sig, raw); err != nil {
		switch ps.Code(err) {
		case ps.ErrBadSignature, ps.ErrBadPayload:
			return c.JSON(http.StatusBadRequest, echo.Map{"message": "event rejected"})
		default:
			h.Log.Error("settlement handling failed", "err", err)
			return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
		}
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "ok"})
}

// POST /v1/payments/:id/renew
func (h *Controller) Renew(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid id"})
	}
	uid, err := jwtx.UserIDFromContext(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"message": "unauthorized"})
	}

	out, err := h.Svc.Renew(c.Request().Context(), uid, id)
	if err != nil {
		switch ps.Code(err) {
		case ps.ErrNotFound:
			return c.JSON(http.StatusNotFound, echo.Map{"message": "payment not found"})
		case ps.ErrNotOwner:
			return c.JSON(http.StatusForbidden, echo.Map{"message": "you can renew only your own payments"})
		case ps.ErrAlreadyPaid:
			return c.JSON(http.StatusBadRequest, echo.Map{"message": "payment already completed"})
		case ps.ErrStillPending:
			return c.JSON(http.StatusBadRequest, echo.Map{"message": "payment session is still open"})
		case ps.ErrGateway:
			return c.JSON(http.StatusBadGateway, echo.Map{"message": "payment gateway unavailable"})
		default:
			h.Log.Error("payment renew", "err", err)
			return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
		}
	}
	return c.JSON(http.StatusOK, echo.Map{
		"message":      "payment renewed",
		"payment_id":   out.PaymentID,
		"checkout_url": out.CheckoutURL,
	})
}

// GET /v1/payments
func (h *Controller) List(c echo.Context) error {
	uid, err := jwtx.UserIDFromContext(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"message": "unauthorized"})
	}
	staff := jwtx.IsStaff(c)

	var f ps.ListFilter
	if staff {
		if v := c.QueryParam("status"); v != "" {
			f.Status = &v
		}
		if v := c.QueryParam("user_id"); v != "" {
			id, err := strconv.ParseInt(v, 10, 64)
			if err != nil {
				return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid user_id"})
			}
			f.UserID = &id
		}
	}

	rows, err := h.Svc.List(c.Request().Context(), uid, staff, f)
	if err != nil {
		h.Log.Error("payment list", "err", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"data": rows})
}

// GET /v1/payments/:id
func (h *Controller) Detail(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid id"})
	}
	uid, err := jwtx.UserIDFromContext(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"message": "unauthorized"})
	}

	p, err := h.Svc.Detail(c.Request().Context(), uid, jwtx.IsStaff(c), id)
	if err != nil {
		switch ps.Code(err) {
		case ps.ErrNotFound:
			return c.JSON(http.StatusNotFound, echo.Map{"message": "payment not found"})
		case ps.ErrNotOwner:
			return c.JSON(http.StatusForbidden, echo.Map{"message": "forbidden"})
		default:
			h.Log.Error("payment detail", "err", err)
			return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
		}
	}
	return c.JSON(http.StatusOK, p)
}

// GET /v1/payments/success?session_id=
func (h *Controller) Success(c echo.Context) error {
	return h.bySession(c, "Book returned successfully, payment received.")
}

// GET /v1/payments/cancel?session_id=
func (h *Controller) Cancel(c echo.Context) error {
	return h.bySession(c, "Payment cancelled. The session stays open for 24 hours.")
}

func (h *Controller) bySession(c echo.Context, detail string) error {
	sessionID := c.QueryParam("session_id")
	if sessionID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid session id"})
	}
	if _, err := h.Svc.BySession(c.Request().Context(), sessionID); err != nil {
		if ps.Code(err) == ps.ErrNotFound {
			return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid session id"})
		}
		h.Log.Error("payment by session", "err", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"message": detail})
}
