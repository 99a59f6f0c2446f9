package ridership

import (
	"context"
	"fmt"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/ridership-cli/internal/db"
)

// PostgresSource sums automatic passenger counter rows stored one row per
// stop event (stop_id, stop_name, latitude, longitude, act_stop_time,
// psgr_on, psgr_off, psgr_load).
type PostgresSource struct {
	Pool  db.Pool
	Table string
	Begin time.Time
	End   time.Time
	// Weekdays restricts events to these days of the week; empty means all.
	Weekdays []time.Weekday
}

// Load implements Source.
func (s *PostgresSource) Load(ctx context.Context) ([]StopRecord, error) {
	if !s.End.IsZero() && s.End.Before(s.Begin) {
		return nil, eris.Errorf("ridership: end %s before begin %s", s.End, s.Begin)
	}
	table, err := db.SanitizeTable(s.Table)
	if err != nil {
		return nil, eris.Wrap(err, "ridership: table")
	}

	log := zap.L().With(zap.String("table", s.Table))

	stops, err := s.stops(ctx, table)
	if err != nil {
		return nil, err
	}
	log.Debug("ridership: loaded stop locations", zap.Int("stops", len(stops)))

	query := fmt.Sprintf(`
		SELECT stop_id::bigint,
			COALESCE(SUM(psgr_on), 0)::bigint,
			COALESCE(SUM(psgr_off), 0)::bigint,
			COALESCE(SUM(psgr_load), 0)::bigint
		FROM %s
		WHERE act_stop_time >= $1 AND act_stop_time <= $2
			AND (cardinality($3::int[]) = 0 OR EXTRACT(DOW FROM act_stop_time)::int = ANY($3::int[]))
		GROUP BY stop_id
		ORDER BY SUM(psgr_on)`, table)

	end := s.End
	if end.IsZero() {
		end = time.Now().UTC()
	}
	rows, err := s.Pool.Query(ctx, query, s.Begin, end, weekdayInts(s.Weekdays))
	if err != nil {
		return nil, eris.Wrap(err, "ridership: query passenger totals")
	}
	defer rows.Close()

	var (
		records []StopRecord
		orphans int
	)
	for rows.Next() {
		var (
			id            int64
			on, off, load int64
		)
		if err := rows.Scan(&id, &on, &off, &load); err != nil {
			return nil, eris.Wrap(err, "ridership: scan passenger totals row")
		}
		stop, ok := stops[id]
		if !ok {
			orphans++
			continue
		}
		records = append(records, StopRecord{Stop: stop, Boardings: on, Alightings: off, Load: load})
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "ridership: iterate passenger totals rows")
	}

	if orphans > 0 {
		log.Warn("ridership: totals without stop location", zap.Int("skipped", orphans))
	}
	return records, nil
}

func (s *PostgresSource) stops(ctx context.Context, table string) (map[int64]Stop, error) {
	query := fmt.Sprintf(`
		SELECT DISTINCT ON (stop_id)
			stop_id::bigint, COALESCE(stop_name, '')::text, latitude::float8, longitude::float8
		FROM %s
		ORDER BY stop_id, stop_name`, table)

	rows, err := s.Pool.Query(ctx, query)
	if err != nil {
		return nil, eris.Wrap(err, "ridership: query stops")
	}
	defer rows.Close()

	stops := make(map[int64]Stop)
	for rows.Next() {
		var st Stop
		if err := rows.Scan(&st.ID, &st.Name, &st.Lat, &st.Lon); err != nil {
			return nil, eris.Wrap(err, "ridership: scan stop row")
		}
		stops[st.ID] = st
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "ridership: iterate stop rows")
	}
	return stops, nil
}

func weekdayInts(days []time.Weekday) []int32 {
	out := make([]int32, 0, len(days))
	for _, d := range days {
		out = append(out, int32(d))
	}
	return out
}
