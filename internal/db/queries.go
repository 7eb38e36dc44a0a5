package db

import (
	"context"

	"github.com/promptgate/promptgate/internal/models"
)

func (db *DB) LogAccess(ctx context.Context, log *models.AccessLog) error {
	query := `
        INSERT INTO access_logs (endpoint, method, status_code, client_id, response_time_ms, request_size, response_size)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
    `

	_, err := db.Pool.Exec(ctx, query,
		log.Endpoint,
		log.Method,
		log.StatusCode,
		log.ClientID,
		log.ResponseTimeMs,
		log.RequestSize,
		log.ResponseSize,
	)

	return err
}

func (db *DB) GetDailyUsage(ctx context.Context, days int) ([]models.DailyUsage, error) {
	query := `
        SELECT to_char(timestamp::date, 'YYYY-MM-DD') AS day,
               COUNT(*) AS requests,
               COUNT(*) FILTER (WHERE status_code >= 400) AS errors
        FROM access_logs
        WHERE timestamp >= NOW() - make_interval(days => $1)
        GROUP BY timestamp::date
        ORDER BY day DESC
    `

	rows, err := db.Pool.Query(ctx, query, days)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var usage []models.DailyUsage
	for rows.Next() {
		var u models.DailyUsage
		if err := rows.Scan(&u.Day, &u.Requests, &u.Errors); err != nil {
			return nil, err
		}
		usage = append(usage, u)
	}

	return usage, rows.Err()
}
