package models

import "time"

// daysPerMonth фиксированная длина месяца подписки.
// Тарификация использует 30-дневные месяцы, а не календарные.
const daysPerMonth = 30

// CalculateEndDate вычисляет дату окончания подписки: start + months * 30 дней.
func CalculateEndDate(start time.Time, months int) time.Time {
	return start.Add(time.Duration(months) * daysPerMonth * 24 * time.Hour)
}

// IsActive сообщает, дает ли подписка доступ прямо сейчас.
// Статус в БД может отставать (ленивое протухание), поэтому решение о доступе
// всегда принимается по этому предикату, а не по сохраненному статусу.
func (s *Subscription) IsActive(now time.Time) bool {
	if s == nil {
		return false
	}
	return s.Status == SubscriptionStatusActive && !now.After(s.EndDate)
}

// IsExpired сообщает, истекла ли подписка по времени.
// Отмененные подписки не считаются истекшими - это терминальный статус.
func (s *Subscription) IsExpired(now time.Time) bool {
	if s == nil {
		return false
	}
	if s.Status == SubscriptionStatusCancelled {
		return false
	}
	return now.After(s.EndDate)
}
