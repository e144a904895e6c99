package api

import (
	"context"
	"time"
)

type Client interface {
	Login(ctx context.Context, email, password string) (string, error)
	Ping(ctx context.Context) error
	SendMoney(ctx context.Context, tr Transfer) (*TransferResult, error)
	Transactions(ctx context.Context) ([]Transaction, error)
}

// Transfer is the body of a send-money request.
type Transfer struct {
	Sender              string  `json:"sender"`
	Recipient           string  `json:"recipient"`
	Amount              float64 `json:"amount"`
	BroadcastToEthereum bool    `json:"broadcastToEthereum"`
}

type TransferResult struct {
	EthereumTxHash string `json:"ethereum_tx_hash,omitempty"`
}

type Transaction struct {
	Sender         string    `json:"sender"`
	Recipient      string    `json:"recipient"`
	Amount         float64   `json:"amount"`
	BlockHash      string    `json:"blockHash"`
	EthereumTxHash string    `json:"ethereumTxHash,omitempty"`
	Status         string    `json:"status"`
	Broadcasted    bool      `json:"broadcasted"`
	Timestamp      time.Time `json:"timestamp"`
}
