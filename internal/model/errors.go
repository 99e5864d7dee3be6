package model

import "errors"

var (
	// ErrDataUnavailable K 线获取失败或 ATR 无法计算，本次 tick 放弃
	ErrDataUnavailable = errors.New("market data unavailable")
	// ErrSentimentUnavailable 新闻获取或情绪分类失败，本次 tick 放弃
	ErrSentimentUnavailable = errors.New("sentiment unavailable")
	// ErrOrderSubmission 经纪商拒绝订单或平仓请求
	ErrOrderSubmission = errors.New("order submission failed")
	// ErrInvalidOrder 订单参数不合法，不会发往经纪商
	ErrInvalidOrder = errors.New("invalid order")
)
