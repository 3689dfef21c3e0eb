package services

import (
	"encoding/json"
	"testing"

	"github.com/go-redis/redismock/v8"
	"github.com/stretchr/testify/assert"
)

func TestQRService_GenerateDepositQR(t *testing.T) {
	t.Run("rejects a non-positive amount", func(t *testing.T) {
		redisClient, _ := redismock.NewClientMock()
		service := NewQRService(redisClient)

		_, _, err := service.GenerateDepositQR(testCtx(), "1111-01-AAAAAAA", 0, "")
		assert.ErrorIs(t, err, ErrInvalidAmount)
	})
}

func TestQRService_RedeemDepositQR(t *testing.T) {
	t.Run("returns the ticket and consumes the code", func(t *testing.T) {
		redisClient, redisMock := redismock.NewClientMock()
		service := NewQRService(redisClient)

		ticket := DepositTicket{AccountID: "1111-01-AAAAAAA", Amount: 7_500, Nonce: "n"}
		payload, err := json.Marshal(ticket)
		assert.NoError(t, err)

		redisMock.ExpectGet("qr:opaque-code").SetVal(string(payload))
		redisMock.ExpectDel("qr:opaque-code").SetVal(1)

		redeemed, err := service.RedeemDepositQR(testCtx(), "opaque-code")
		assert.NoError(t, err)
		assert.Equal(t, "1111-01-AAAAAAA", redeemed.AccountID)
		assert.Equal(t, int64(7_500), redeemed.Amount)
		assert.NoError(t, redisMock.ExpectationsWereMet())
	})

	t.Run("expired or unknown code fails", func(t *testing.T) {
		redisClient, redisMock := redismock.NewClientMock()
		service := NewQRService(redisClient)

		redisMock.ExpectGet("qr:gone").RedisNil()

		_, err := service.RedeemDepositQR(testCtx(), "gone")
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "invalid or expired")
	})
}
