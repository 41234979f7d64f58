package borrowing

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"booklibrary/app/echoServer/jwtx"
	bs "booklibrary/service/borrowing"

	"github.com/labstack/echo/v4"
)

type Controller struct {
	Svc bs.Service
	Log *slog.Logger
}

// POST /v1/borrowings
func (h *Controller) Create(c echo.Context) error {
	var req CreateBorrowingReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid JSON"})
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	expected, err := time.Parse("2006-01-02", req.ExpectedReturnDate)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid expected_return_date"})
	}
	uid, err := jwtx.UserIDFromContext(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"message": "unauthorized"})
	}

	b, err := h.Svc.Create(c.Request().Context(), uid, req.BookID, expected)
	if err != nil {
		switch bs.Code(err) {
		case bs.ErrBadReturnDate:
			return c.JSON(http.StatusBadRequest, echo.Map{"message": "expected_return_date must be after today"})
		case bs.ErrOutOfStock:
			return c.JSON(http.StatusBadRequest, echo.Map{"message": "book is out of stock"})
		case bs.ErrBookNotFound:
			return c.JSON(http.StatusNotFound, echo.Map{"message": "book not found"})
		default:
			h.Log.Error("borrowing create", "err", err)
			return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
		}
	}
	return c.JSON(http.StatusCreated, b)
}

// POST /v1/borrowings/:id/return
func (h *Controller) Return(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid id"})
	}
	var req ReturnBorrowingReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid JSON"})
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	var actual *time.Time
	if req.ActualReturnDate != "" {
		t, err := time.Parse("2006-01-02", req.ActualReturnDate)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid actual_return_date"})
		}
		actual = &t
	}
	uid, err := jwtx.UserIDFromContext(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"message": "unauthorized"})
	}

	out, err := h.Svc.Return(c.Request().Context(), uid, jwtx.IsStaff(c), id, actual)
	if err != nil {
		switch bs.Code(err) {
		case bs.ErrNotFound:
			return c.JSON(http.StatusNotFound, echo.Map{"message": "borrowing not found"})
		case bs.ErrNotOwner:
			return c.JSON(http.StatusForbidden, echo.Map{"message": "forbidden"})
		case bs.ErrAlreadyReturned:
			return c.JSON(http.StatusBadRequest, echo.Map{"message": "borrowing is already returned"})
		case bs.ErrBadReturnDate:
			return c.JSON(http.StatusBadRequest, echo.Map{"message": "actual_return_date before borrow date"})
		default:
			h.Log.Error("borrowing return", "err", err)
			return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
		}
	}
	return c.JSON(http.StatusOK, echo.Map{
		"borrowing_id":       out.BorrowingID,
		"payment_id":         out.PaymentID,
		"amount_to_pay":      out.AmountToPay,
		"payment_type":       out.PaymentType,
		"checkout_url":       out.CheckoutURL,
		"actual_return_date": out.ActualReturnDate.Format("2006-01-02"),
	})
}

// GET /v1/borrowings
func (h *Controller) List(c echo.Context) error {
	uid, err := jwtx.UserIDFromContext(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"message": "unauthorized"})
	}
	staff := jwtx.IsStaff(c)

	var f bs.ListFilter
	if staff {
		if v := c.QueryParam("user_id"); v != "" {
			id, err := strconv.ParseInt(v, 10, 64)
			if err != nil {
				return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid user_id"})
			}
			f.UserID = &id
		}
		if v := c.QueryParam("is_active"); v != "" {
			var active bool
			switch v {
			case "1", "true":
				active = true
			case "0", "false":
				active = false
			default:
				return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid is_active value, use 1 or 0 / true or false"})
			}
			f.IsActive = &active
		}
	}

	rows, err := h.Svc.List(c.Request().Context(), uid, staff, f)
	if err != nil {
		h.Log.Error("borrowing list", "err", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"data": rows})
}

// GET /v1/borrowings/:id
func (h *Controller) Detail(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid id"})
	}
	uid, err := jwtx.UserIDFromContext(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"message": "unauthorized"})
	}

	b, err := h.Svc.Detail(c.Request().Context(), uid, jwtx.IsStaff(c), id)
	if err != nil {
		switch bs.Code(err) {
		case bs.ErrNotFound:
			return c.JSON(http.StatusNotFound, echo.Map{"message": "borrowing not found"})
		case bs.ErrNotOwner:
			return c.JSON(http.StatusForbidden, echo.Map{"message": "forbidden"})
		default:
			h.Log.Error("borrowing detail", "err", err)
			return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
		}
	}
	return c.JSON(http.StatusOK, b)
}
