// Package calendar turns recurring weekly attendance patterns and leave
// exceptions into concrete work intervals for a date range.
package calendar

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	calendarRepo "slotwise/database/repository/calendar"
	"slotwise/models"
	"slotwise/utils"
)

// Service computes work intervals. Results are pure functions of the
// calendar, its leaves and the query range; the Redis cache is a
// read-through layer keyed by a per-calendar version that writes bump.
type Service struct {
	Repo     calendarRepo.CalendarRepository
	Cache    *redis.Client
	CacheTTL time.Duration
}

// WorkIntervals expands the calendar's weekly attendances over [start, end)
// in the calendar's own time zone, clips them to the query range, and
// subtracts every applicable leave: global leaves always, resource-scoped
// ones when resourceID is given. Resulting intervals never extend outside
// [start, end).
func (s *Service) WorkIntervals(ctx context.Context, calendarID string, start, end time.Time, resourceID string) (models.IntervalSet, error) {
	if !start.Before(end) {
		return models.IntervalSet{}, fmt.Errorf("%w: [%s, %s)", models.ErrInvalidInterval,
			start.Format(time.RFC3339), end.Format(time.RFC3339))
	}
	key := s.cacheKey(ctx, calendarID, start, end, resourceID)
	if set, ok := s.cacheGet(ctx, key); ok {
		return set, nil
	}

	cal, err := s.Repo.GetCalendar(ctx, calendarID)
	if err != nil {
		return models.IntervalSet{}, err
	}
	attendance, err := expandAttendances(cal, start, end)
	if err != nil {
		return models.IntervalSet{}, err
	}

	leaves, err := s.Repo.ListLeaves(ctx, calendarID, start, end)
	if err != nil {
		return models.IntervalSet{}, err
	}
	var closed []models.TimeInterval
	for _, leave := range leaves {
		if !leave.AppliesTo(resourceID) {
			continue
		}
		if leave.From.Before(leave.To) {
			closed = append(closed, models.TimeInterval{Start: leave.From, End: leave.To})
		}
	}
	leaveSet, err := models.NewIntervalSet(closed...)
	if err != nil {
		return models.IntervalSet{}, err
	}

	result := attendance.Subtract(leaveSet)
	s.cachePut(ctx, key, result)
	return result, nil
}

// Invalidate drops every cached expansion of the calendar.
func (s *Service) Invalidate(ctx context.Context, calendarID string) {
	utils.BumpCalendarCacheVersion(ctx, s.Cache, calendarID)
}

// expandAttendances instantiates each weekly attendance for every matching
// day that touches [start, end). Instants are built in the calendar's zone
// so clock times stay stable across DST shifts; all interval math after
// that point is zone-agnostic.
func expandAttendances(cal *models.Calendar, start, end time.Time) (models.IntervalSet, error) {
	loc := cal.Location()
	localStart := start.In(loc)
	day := time.Date(localStart.Year(), localStart.Month(), localStart.Day(), 0, 0, 0, 0, loc)
	var open []models.TimeInterval
	for ; day.Before(end); day = day.AddDate(0, 0, 1) {
		for _, att := range cal.Attendances {
			if att.Weekday != day.Weekday() || att.EndMinute <= att.StartMinute {
				continue
			}
			ivStart := time.Date(day.Year(), day.Month(), day.Day(), 0, att.StartMinute, 0, 0, loc)
			ivEnd := time.Date(day.Year(), day.Month(), day.Day(), 0, att.EndMinute, 0, 0, loc)
			if ivStart.Before(start) {
				ivStart = start
			}
			if ivEnd.After(end) {
				ivEnd = end
			}
			if ivStart.Before(ivEnd) {
				open = append(open, models.TimeInterval{Start: ivStart, End: ivEnd})
			}
		}
	}
	return models.NewIntervalSet(open...)
}

func (s *Service) cacheKey(ctx context.Context, calendarID string, start, end time.Time, resourceID string) string {
	version := utils.CalendarCacheVersion(ctx, s.Cache, calendarID)
	return fmt.Sprintf("workiv:%s:%d:%d:%d:%s", calendarID, version, start.Unix(), end.Unix(), resourceID)
}

func (s *Service) cacheGet(ctx context.Context, key string) (models.IntervalSet, bool) {
	if s.Cache == nil {
		return models.IntervalSet{}, false
	}
	payload, err := s.Cache.Get(ctx, key).Result()
	if err != nil {
		return models.IntervalSet{}, false
	}
	var intervals []models.TimeInterval
	if err := json.Unmarshal([]byte(payload), &intervals); err != nil {
		return models.IntervalSet{}, false
	}
	set, err := models.NewIntervalSet(intervals...)
	if err != nil {
		return models.IntervalSet{}, false
	}
	return set, true
}

func (s *Service) cachePut(ctx context.Context, key string, set models.IntervalSet) {
	if s.Cache == nil {
		return
	}
	payload, err := json.Marshal(set.Intervals())
	if err != nil {
		return
	}
	ttl := s.CacheTTL
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	if err := s.Cache.Set(ctx, key, payload, ttl).Err(); err != nil {
		utils.GetLogger().Warn("failed to cache work intervals", zap.String("key", key), zap.Error(err))
	}
}
