package models

import "errors"

// Ошибки уровня приложения. Адаптеры оборачивают в них инфраструктурные ошибки для errors.Is
var (
	// ErrDataUnavailable - поставщик данных или хранилище упали или не ответили вовремя
	ErrDataUnavailable = errors.New("data unavailable")
	// ErrInsufficientHistory - свечей меньше, чем нужно индикатору
	ErrInsufficientHistory = errors.New("insufficient history")
	// ErrInvalidParameter - неизвестная биржа, кривой символ или неподдерживаемый таймфрейм
	ErrInvalidParameter = errors.New("invalid parameter")
	// ErrPartialDataLoss - необязательные данные были пропущены
	ErrPartialDataLoss = errors.New("partial data loss")
	ErrNotFound        = errors.New("not found")
)
