// internal/api/openinghours/handlers.go
package openinghours

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/codr1/marketplace/internal/api/apiutil"
	"github.com/codr1/marketplace/internal/cache"
	"github.com/codr1/marketplace/internal/db"
	"github.com/codr1/marketplace/internal/db/dbq"
	"github.com/codr1/marketplace/internal/openhours"
)

const (
	openingHoursQueryTimeout = 5 * time.Second
	shopIDParam              = "shop_id"
	dayIDParam               = "day_id"
)

var (
	store      *db.DB
	hoursCache *cache.HoursCache
	initOnce   sync.Once
)

// InitHandlers must be called during server startup before handling requests.
// c may be nil when Redis is not configured.
func InitHandlers(database *db.DB, c *cache.HoursCache) {
	if database == nil {
		return
	}
	initOnce.Do(func() {
		store = database
		hoursCache = c
	})
}

// LoadWeek returns the shop's weekly schedule, read through the hours cache.
func LoadWeek(ctx context.Context, shopID int64) (openhours.Week, error) {
	if store == nil {
		return nil, fmt.Errorf("opening hours store not initialized")
	}
	return WeekLoader(store, hoursCache)(ctx, shopID)
}

// WeekLoader returns a schedule reader over database. c may be nil.
func WeekLoader(database *db.DB, c *cache.HoursCache) func(context.Context, int64) (openhours.Week, error) {
	return func(ctx context.Context, shopID int64) (openhours.Week, error) {
		return c.Load(ctx, shopID, func(ctx context.Context) (openhours.Week, error) {
			rows, err := database.Queries.ListOpeningHours(ctx, shopID)
			if err != nil {
				return nil, fmt.Errorf("list opening hours: %w", err)
			}
			return weekFromRows(rows)
		})
	}
}

func weekFromRows(rows []dbq.OpeningHour) (openhours.Week, error) {
	week := make(openhours.Week, 0, len(rows))
	for _, row := range rows {
		rec := openhours.Record{DayID: int(row.DayID), IsClosed: row.IsClosed}
		if !row.IsClosed {
			start, err := openhours.ParseTimeOfDay(row.StartTime)
			if err != nil {
				return nil, fmt.Errorf("opening hour %d start_time: %w", row.ID, err)
			}
			end, err := openhours.ParseTimeOfDay(row.EndTime)
			if err != nil {
				return nil, fmt.Errorf("opening hour %d end_time: %w", row.ID, err)
			}
			rec.Start = start
			rec.End = end
		}
		week = append(week, rec)
	}
	return week, nil
}

// GET /api/v1/shops/{shop_id}/opening-hours
func HandleListOpeningHours(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	if store == nil {
		logger.Error().Msg("Database queries not initialized")
		apiutil.WriteError(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	shopID, err := apiutil.PathID(r, shopIDParam)
	if err != nil {
		apiutil.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), openingHoursQueryTimeout)
	defer cancel()

	if _, err := store.Queries.GetShop(ctx, shopID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			apiutil.WriteError(w, http.StatusNotFound, "Shop not found")
			return
		}
		logger.Error().Err(err).Int64("shop_id", shopID).Msg("Failed to load shop")
		apiutil.WriteError(w, http.StatusInternalServerError, "Failed to load opening hours")
		return
	}

	week, err := LoadWeek(ctx, shopID)
	if err != nil {
		logger.Error().Err(err).Int64("shop_id", shopID).Msg("Failed to fetch opening hours")
		apiutil.WriteError(w, http.StatusInternalServerError, "Failed to load opening hours")
		return
	}

	if err := apiutil.WriteJSON(w, http.StatusOK, week.ToWire()); err != nil {
		logger.Error().Err(err).Int64("shop_id", shopID).Msg("Failed to write opening hours response")
	}
}

// PUT /api/v1/vendor/shops/{shop_id}/opening-hours/{day_id}
//
// The body replaces every record of the day. An empty list clears the day and
// a closed record collapses the day to a single closed entry.
func HandleReplaceDay(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	if store == nil {
		logger.Error().Msg("Database queries not initialized")
		apiutil.WriteError(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	shopID, err := apiutil.PathID(r, shopIDParam)
	if err != nil {
		apiutil.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	dayID, err := dayIDFromRequest(r)
	if err != nil {
		apiutil.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	if _, ok := apiutil.RequireShopManager(w, r, store.Queries, shopID); !ok {
		return
	}

	var body []openhours.WireRecord
	if err := apiutil.DecodeJSON(r, &body); err != nil {
		apiutil.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	records, fieldErrs := parseRecords(body, dayID)
	if fieldErrs.HasErrors() {
		apiutil.WriteFieldErrors(w, fieldErrs)
		return
	}
	records = collapseClosed(records)

	ctx, cancel := context.WithTimeout(r.Context(), openingHoursQueryTimeout)
	defer cancel()

	err = store.RunInTx(ctx, func(txdb *db.DB) error {
		if err := txdb.Queries.DeleteOpeningHoursForDay(ctx, shopID, int64(dayID)); err != nil {
			return err
		}
		return insertRecords(ctx, txdb.Queries, shopID, records)
	})
	if err != nil {
		logger.Error().Err(err).Int64("shop_id", shopID).Int("day_id", dayID).Msg("Failed to replace opening hours")
		apiutil.WriteError(w, http.StatusInternalServerError, "Failed to update opening hours")
		return
	}

	writeUpdatedWeek(w, r, shopID)
}

// PUT /api/v1/vendor/shops/{shop_id}/opening-hours
func HandleReplaceWeek(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	if store == nil {
		logger.Error().Msg("Database queries not initialized")
		apiutil.WriteError(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	shopID, err := apiutil.PathID(r, shopIDParam)
	if err != nil {
		apiutil.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	if _, ok := apiutil.RequireShopManager(w, r, store.Queries, shopID); !ok {
		return
	}

	var body []openhours.WireRecord
	if err := apiutil.DecodeJSON(r, &body); err != nil {
		apiutil.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	records, fieldErrs := parseRecords(body, 0)
	if fieldErrs.HasErrors() {
		apiutil.WriteFieldErrors(w, fieldErrs)
		return
	}

	byDay := make(map[int][]openhours.Record)
	for _, rec := range records {
		byDay[rec.DayID] = append(byDay[rec.DayID], rec)
	}
	var normalized []openhours.Record
	for day := openhours.MinDayID; day <= openhours.MaxDayID; day++ {
		normalized = append(normalized, collapseClosed(byDay[day])...)
	}

	ctx, cancel := context.WithTimeout(r.Context(), openingHoursQueryTimeout)
	defer cancel()

	err = store.RunInTx(ctx, func(txdb *db.DB) error {
		if err := txdb.Queries.DeleteOpeningHours(ctx, shopID); err != nil {
			return err
		}
		return insertRecords(ctx, txdb.Queries, shopID, normalized)
	})
	if err != nil {
		logger.Error().Err(err).Int64("shop_id", shopID).Msg("Failed to replace weekly opening hours")
		apiutil.WriteError(w, http.StatusInternalServerError, "Failed to update opening hours")
		return
	}

	writeUpdatedWeek(w, r, shopID)
}

func writeUpdatedWeek(w http.ResponseWriter, r *http.Request, shopID int64) {
	logger := log.Ctx(r.Context())

	ctx, cancel := context.WithTimeout(r.Context(), openingHoursQueryTimeout)
	defer cancel()

	if err := hoursCache.Invalidate(ctx, shopID); err != nil {
		logger.Warn().Err(err).Int64("shop_id", shopID).Msg("Failed to invalidate opening hours cache")
	}

	week, err := LoadWeek(ctx, shopID)
	if err != nil {
		logger.Error().Err(err).Int64("shop_id", shopID).Msg("Failed to reload opening hours")
		apiutil.WriteError(w, http.StatusInternalServerError, "Failed to load opening hours")
		return
	}
	if err := apiutil.WriteJSON(w, http.StatusOK, week.ToWire()); err != nil {
		logger.Error().Err(err).Int64("shop_id", shopID).Msg("Failed to write opening hours response")
	}
}

// parseRecords converts wire records. When dayID is set, records must belong to
// that day; a zero day_id inherits it.
func parseRecords(body []openhours.WireRecord, dayID int) ([]openhours.Record, apiutil.FieldErrors) {
	var fe apiutil.FieldErrors
	records := make([]openhours.Record, 0, len(body))
	for i, wire := range body {
		field := fmt.Sprintf("records[%d]", i)
		if dayID != 0 {
			if wire.DayID == 0 {
				wire.DayID = openhours.FlexInt(dayID)
			} else if int(wire.DayID) != dayID {
				fe.Add(field, fmt.Sprintf("day_id must be %d", dayID))
				continue
			}
		}
		rec, err := openhours.FromWire(wire)
		if err != nil {
			fe.Add(field, err.Error())
			continue
		}
		records = append(records, rec)
	}
	return records, fe
}

// collapseClosed reduces a day to one closed record when any record is closed.
func collapseClosed(records []openhours.Record) []openhours.Record {
	for _, rec := range records {
		if rec.IsClosed {
			return []openhours.Record{{DayID: rec.DayID, IsClosed: true}}
		}
	}
	return records
}

func insertRecords(ctx context.Context, q *dbq.Queries, shopID int64, records []openhours.Record) error {
	for _, rec := range records {
		err := q.InsertOpeningHour(ctx, dbq.InsertOpeningHourParams{
			ShopID:    shopID,
			DayID:     int64(rec.DayID),
			IsClosed:  rec.IsClosed,
			StartTime: rec.Start.String(),
			EndTime:   rec.End.String(),
		})
		if err != nil {
			return fmt.Errorf("insert opening hour for day %d: %w", rec.DayID, err)
		}
	}
	return nil
}

func dayIDFromRequest(r *http.Request) (int, error) {
	raw := strings.TrimSpace(r.PathValue(dayIDParam))
	value, err := strconv.Atoi(raw)
	if err != nil || value < openhours.MinDayID || value > openhours.MaxDayID {
		return 0, fmt.Errorf("day_id must be between %d and %d", openhours.MinDayID, openhours.MaxDayID)
	}
	return value, nil
}
