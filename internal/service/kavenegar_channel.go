package service

import (
	"context"
	"fmt"

	"github.com/kavenegar/kavenegar-go"

	"amlakpro/settlement-service/pkg/helpers"
	"amlakpro/settlement-service/pkg/logger"
)

type kavenegarChannel struct {
	api    *kavenegar.Kavenegar
	sender string
}

// NewKavenegarChannel creates a Kavenegar SMS confirmation channel.
// Falls back to the noop channel when no API key is configured.
func NewKavenegarChannel(apiKey, sender string, log *logger.Logger) ConfirmationChannel {
	if apiKey == "" {
		log.Warn("Kavenegar API key is empty, supplier confirmations will only be logged")
		return NewNoopChannel(log)
	}

	return &kavenegarChannel{
		api:    kavenegar.New(apiKey),
		sender: sender,
	}
}

func (c *kavenegarChannel) SendConfirmation(ctx context.Context, payload ConfirmationPayload) (string, error) {
	if payload.Mobile == "" {
		return "", fmt.Errorf("supplier %s has no mobile number", payload.SupplierName)
	}

	amount, _ := payload.Amount.Float64()
	message := fmt.Sprintf("%s عزیز، حواله شما به مبلغ %s تومان با نرخ %s در تاریخ %s ثبت شد.",
		payload.SupplierName,
		helpers.NumberFormatWithSeparator(amount, 0, ".", ","),
		payload.Rate.String(),
		helpers.NowJalaliDateTime(),
	)

	res, err := c.api.Message.Send(c.sender, []string{payload.Mobile}, message, nil)
	if err != nil {
		switch err := err.(type) {
		case *kavenegar.APIError:
			return "", fmt.Errorf("kavenegar API error: %w", err)
		case *kavenegar.HTTPError:
			return "", fmt.Errorf("kavenegar HTTP error: %w", err)
		default:
			return "", fmt.Errorf("failed to send confirmation: %w", err)
		}
	}

	if len(res) == 0 {
		return "", fmt.Errorf("no response entries from Kavenegar")
	}

	return fmt.Sprintf("%d", res[0].MessageID), nil
}
