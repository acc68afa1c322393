package httpapi

import (
	"errors"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/hkoenig/gridcarbon/internal/co2"
	"github.com/hkoenig/gridcarbon/internal/electricitymaps"
)

var validate = validator.New()

// ErrorHandler is the centralized fiber error handler: validation failures
// keep their client-error status, upstream and payload-decode failures
// surface as 502.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError

	var fiberErr *fiber.Error
	var upstreamErr *electricitymaps.UpstreamError
	var parseErr *electricitymaps.ParseError
	switch {
	case errors.As(err, &fiberErr):
		code = fiberErr.Code
	case errors.As(err, &upstreamErr), errors.As(err, &parseErr):
		code = fiber.StatusBadGateway
	}

	return c.Status(code).JSON(fiber.Map{
		"error":   true,
		"message": err.Error(),
	})
}

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, service *co2.Service) {
	app.Get("/co2/latest", func(c *fiber.Ctx) error {
		reading, err := service.Latest(c.UserContext())
		if err != nil {
			return err
		}
		return c.JSON(reading)
	})

	app.Get("/co2/history", func(c *fiber.Ctx) error {
		req := historyQuery{Hours: 24}
		if raw := c.Query("hours"); raw != "" {
			hours, err := strconv.Atoi(raw)
			if err != nil {
				return fiber.NewError(fiber.StatusBadRequest, "hours must be an integer")
			}
			req.Hours = hours
		}
		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		summary, err := service.History(c.UserContext(), req.Hours)
		if err != nil {
			return err
		}
		return c.JSON(summary)
	})

	app.Post("/calc/wp", func(c *fiber.Ctx) error {
		var req wpRequest
		if err := bind(c, &req); err != nil {
			return err
		}

		result, err := service.HeatPump(c.UserContext(), co2.HeatPumpInput{KWh: req.KWh})
		if err != nil {
			return err
		}
		return c.JSON(result)
	})

	app.Post("/calc/alt", func(c *fiber.Ctx) error {
		var req altRequest
		if err := bind(c, &req); err != nil {
			return err
		}

		result := co2.Alternative(co2.AlternativeInput{
			HeatKWh:    req.HeatKWh,
			Efficiency: orDefault(req.Efficiency, co2.DefaultEfficiency),
			GasFactor:  orDefault(req.GasFactor, co2.DefaultGasFactor),
		})
		return c.JSON(result)
	})

	app.Post("/calc/savings", func(c *fiber.Ctx) error {
		var req savingsRequest
		if err := bind(c, &req); err != nil {
			return err
		}

		result, err := service.Savings(c.UserContext(), co2.SavingsInput{
			HeatKWh:    req.HeatKWh,
			COP:        req.COP,
			Efficiency: orDefault(req.Efficiency, co2.DefaultEfficiency),
			GasFactor:  orDefault(req.GasFactor, co2.DefaultGasFactor),
		})
		if err != nil {
			return err
		}
		return c.JSON(result)
	})
}

// historyQuery holds query parameters for the history endpoint.
type historyQuery struct {
	Hours int `validate:"min=1,max=168"`
}

// wpRequest is the heat-pump consumption body.
type wpRequest struct {
	KWh float64 `json:"kWh" validate:"required,gt=0"`
}

// altRequest is the gas-alternative body; optional fields default server-side.
type altRequest struct {
	HeatKWh    float64  `json:"heat_kWh" validate:"required,gt=0"`
	Efficiency *float64 `json:"efficiency" validate:"omitempty,gt=0,lte=1"`
	GasFactor  *float64 `json:"gasFactor_kg_per_kWh" validate:"omitempty,gt=0"`
}

// savingsRequest is the heat-pump-vs-gas comparison body.
type savingsRequest struct {
	HeatKWh    float64  `json:"heat_kWh" validate:"required,gt=0"`
	COP        float64  `json:"cop" validate:"required,gt=0"`
	Efficiency *float64 `json:"efficiency" validate:"omitempty,gt=0,lte=1"`
	GasFactor  *float64 `json:"gasFactor_kg_per_kWh" validate:"omitempty,gt=0"`
}

// bind parses the JSON body into dst and validates it, mapping failures to 400.
func bind(c *fiber.Ctx, dst any) error {
	if err := c.BodyParser(dst); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	if err := validate.Struct(dst); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	return nil
}

func orDefault(v *float64, def float64) float64 {
	if v != nil {
		return *v
	}
	return def
}
