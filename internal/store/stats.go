package store

import (
	"context"
	"fmt"
	"time"
)

// Stats is the admin dashboard summary.
type Stats struct {
	TotalVisitors    int64         `json:"total_visitors"`
	UniqueVisitors   int64         `json:"unique_visitors"`
	VisitorsToday    int64         `json:"visitors_today"`
	VisitorsThisWeek int64         `json:"visitors_this_week"`
	FallbackVisits   int64         `json:"fallback_visits"`
	TotalMessages    int64         `json:"total_messages"`
	Undelivered      int64         `json:"undelivered_messages"`
	TopProjects      []ProjectStat `json:"top_projects"`
	RecentVisitors   []Visit       `json:"recent_visitors"`
}

// Stats gathers the dashboard numbers.
func (s *Store) Stats(ctx context.Context) (*Stats, error) {
	now := s.now().UTC()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	weekAgo := now.Add(-7 * 24 * time.Hour)

	stats := &Stats{}
	counts := []struct {
		dst   *int64
		query string
		args  []any
	}{
		{&stats.TotalVisitors, `SELECT COUNT(*) FROM visitors`, nil},
		{&stats.UniqueVisitors, `SELECT COUNT(DISTINCT hashed_ip) FROM visitors`, nil},
		{&stats.VisitorsToday, `SELECT COUNT(*) FROM visitors WHERE timestamp >= ?`, []any{midnight}},
		{&stats.VisitorsThisWeek, `SELECT COUNT(*) FROM visitors WHERE timestamp >= ?`, []any{weekAgo}},
		{&stats.FallbackVisits, `SELECT COUNT(*) FROM visitors WHERE render_mode = 'fallback'`, nil},
		{&stats.TotalMessages, `SELECT COUNT(*) FROM messages`, nil},
		{&stats.Undelivered, `SELECT COUNT(*) FROM messages WHERE delivered = 0`, nil},
	}
	for _, c := range counts {
		if err := s.db.QueryRowContext(ctx, c.query, c.args...).Scan(c.dst); err != nil {
			return nil, fmt.Errorf("stats: %w", err)
		}
	}

	top, err := s.TopProjects(ctx, 10)
	if err != nil {
		return nil, err
	}
	stats.TopProjects = top

	recent, err := s.RecentVisitors(ctx, 50)
	if err != nil {
		return nil, err
	}
	stats.RecentVisitors = recent
	return stats, nil
}

// TopProjects ranks projects by total 3D interactions.
func (s *Store) TopProjects(ctx context.Context, n int) ([]ProjectStat, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT project_id,
			COALESCE(SUM(CASE WHEN kind = ? THEN count END), 0) AS orbits,
			COALESCE(SUM(CASE WHEN kind = ? THEN count END), 0) AS opens,
			MAX(last_at) AS last_at
		FROM interactions
		GROUP BY project_id
		ORDER BY SUM(count) DESC, project_id
		LIMIT ?`, KindOrbit, KindOpen, n)
	if err != nil {
		return nil, fmt.Errorf("top projects: %w", err)
	}
	defer rows.Close()

	var out []ProjectStat
	for rows.Next() {
		var p ProjectStat
		var last string
		if err := rows.Scan(&p.ProjectID, &p.Orbits, &p.Opens, &last); err != nil {
			return nil, err
		}
		p.LastAt = parseTime(last)
		out = append(out, p)
	}
	return out, rows.Err()
}

// parseTime reads a time that went through an SQL aggregate, which returns
// it as text rather than a DATETIME.
func parseTime(s string) time.Time {
	for _, layout := range []string{
		"2006-01-02 15:04:05.999999999-07:00",
		time.RFC3339Nano,
		"2006-01-02 15:04:05",
	} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
