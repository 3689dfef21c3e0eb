package services

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"image/png"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/skip2/go-qrcode"
)

// QRService issues one-time deposit QR codes. A code fixes the target
// account and amount, lives five minutes in Redis, and is consumed on
// first redemption so a scanned code cannot be replayed.
type QRService struct {
	redis *redis.Client
}

func NewQRService(redisClient *redis.Client) *QRService {
	return &QRService{redis: redisClient}
}

// DepositTicket is the payload encoded into a deposit QR code.
type DepositTicket struct {
	AccountID     string `json:"accountId"`
	Amount        int64  `json:"amount"`
	DepositorName string `json:"depositorName,omitempty"`
	Timestamp     int64  `json:"timestamp"`
	Nonce         string `json:"nonce"`
}

// GenerateDepositQR returns the opaque code and a base64 PNG rendering.
func (s *QRService) GenerateDepositQR(ctx context.Context, accountID string, amount int64, depositorName string) (string, string, error) {
	if amount <= 0 {
		return "", "", ErrInvalidAmount
	}

	ticket := DepositTicket{
		AccountID:     accountID,
		Amount:        amount,
		DepositorName: depositorName,
		Timestamp:     time.Now().Unix(),
		Nonce:         s.generateNonce(),
	}

	jsonData, err := json.Marshal(ticket)
	if err != nil {
		return "", "", err
	}

	qrCode := base64.URLEncoding.EncodeToString(jsonData)

	key := fmt.Sprintf("qr:%s", qrCode)
	if err := s.redis.Set(ctx, key, jsonData, 5*time.Minute).Err(); err != nil {
		return "", "", err
	}

	qr, err := qrcode.New(qrCode, qrcode.Medium)
	if err != nil {
		return "", "", err
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, qr.Image(256)); err != nil {
		return "", "", err
	}

	qrImage := base64.StdEncoding.EncodeToString(buf.Bytes())

	return qrCode, qrImage, nil
}

// RedeemDepositQR consumes a code and returns its ticket. A code redeems
// exactly once; expired or unknown codes fail.
func (s *QRService) RedeemDepositQR(ctx context.Context, qrCode string) (*DepositTicket, error) {
	key := fmt.Sprintf("qr:%s", qrCode)

	data, err := s.redis.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, fmt.Errorf("invalid or expired QR code")
	}
	if err != nil {
		return nil, err
	}

	var ticket DepositTicket
	if err := json.Unmarshal(data, &ticket); err != nil {
		return nil, err
	}

	s.redis.Del(ctx, key)

	return &ticket, nil
}

func (s *QRService) generateNonce() string {
	b := make([]byte, 16)
	rand.Read(b)
	return base64.URLEncoding.EncodeToString(b)
}
