package handlers

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

const moveTimeLayout = "2006-01-02 15:04"

var errUsage = errors.New("invalid command arguments")

// commandArgs возвращает аргументы команды без самой команды
func commandArgs(text string) []string {
	fields := strings.Fields(text)
	if len(fields) <= 1 {
		return nil
	}
	return fields[1:]
}

// parseTeacherArg разбирает необязательный id учителя; 0 - все учителя
func parseTeacherArg(args []string) (int64, error) {
	if len(args) == 0 {
		return 0, nil
	}
	if len(args) > 1 {
		return 0, errUsage
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil || id <= 0 {
		return 0, errUsage
	}
	return id, nil
}

// parseMoveArgs разбирает "<lessonID> <YYYY-MM-DD HH:MM>"
func parseMoveArgs(args []string, loc *time.Location) (uuid.UUID, time.Time, error) {
	if len(args) != 3 {
		return uuid.Nil, time.Time{}, errUsage
	}
	id, err := uuid.Parse(args[0])
	if err != nil {
		return uuid.Nil, time.Time{}, fmt.Errorf("parse lesson id: %w", err)
	}
	start, err := parseStart(args[1]+" "+args[2], loc)
	if err != nil {
		return uuid.Nil, time.Time{}, err
	}
	return id, start, nil
}

func parseStart(s string, loc *time.Location) (time.Time, error) {
	start, err := time.ParseInLocation(moveTimeLayout, strings.TrimSpace(s), loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse start time: %w", err)
	}
	return start, nil
}
