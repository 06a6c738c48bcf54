package tochka

import (
	"errors"

	"github.com/shopspring/decimal"
)

// Scopes requested on every client-credentials exchange.
const TokenScope = "ReadSbpData EditSbpData MakeSbpPayments"

// TokenResponse is the gateway's answer to a client-credentials grant.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
	Scope       string `json:"scope"`
}

// QRRequest describes a dynamic QR code registration.
type QRRequest struct {
	Amount         decimal.Decimal
	Currency       string
	PaymentPurpose string
	TTLMinutes     int
	RedirectURL    string
}

func (r *QRRequest) Validate() error {
	if r.Amount.LessThanOrEqual(decimal.Zero) {
		return errors.New("amount must be greater than 0")
	}
	if r.Currency == "" {
		return errors.New("currency is required")
	}
	if r.PaymentPurpose == "" {
		return errors.New("payment purpose is required")
	}
	return nil
}

// AmountKopecks converts the decimal amount to the gateway's minor units.
func (r *QRRequest) AmountKopecks() int64 {
	return r.Amount.Mul(decimal.NewFromInt(100)).IntPart()
}

// QRRequestBody is the wire shape of the registration call.
type QRRequestBody struct {
	Data QRRequestData `json:"Data"`
}

type QRRequestData struct {
	Amount         int64  `json:"amount"`
	Currency       string `json:"currency"`
	PaymentPurpose string `json:"paymentPurpose"`
	QRCType        string `json:"qrcType"`
	SourceName     string `json:"sourceName"`
	TTL            int    `json:"ttl"`
	RedirectURL    string `json:"redirectUrl,omitempty"`
}

type QRResponse struct {
	Data QRData `json:"Data"`
}

type QRData struct {
	// Payload is the URL the payer is redirected to.
	Payload string `json:"payload"`
	// QRCID is the gateway-issued QR identifier; it becomes the payment's
	// transaction id once registration succeeds.
	QRCID string `json:"qrcId"`
}

// ErrorResponse is the gateway's 4xx error body.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Errors  []struct {
		ErrorCode string `json:"errorCode"`
		Message   string `json:"message"`
	} `json:"Errors"`
}
