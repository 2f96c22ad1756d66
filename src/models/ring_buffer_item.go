package models

// RingBuffer feature indices and constants
const (
	RB_IDX_TRADE_TIME  = 0
	RB_IDX_PRICE       = 1
	RB_IDX_QUANTITY    = 2
	RB_IDX_QUOTE_VOL   = 3
	RB_IDX_BUYER_MAKER = 4 // 0.0 or 1.0
	RB_IDX_TRADE_ID    = 5
	RB_NUM_FEATURES    = 6
)
