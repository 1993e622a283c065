package ui

import (
	"bufio"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/bytedance/sonic"
)

const (
	maxLogLines   = 50
	logTimeLayout = "02.01.2006 - 15:04:05.999999999Z07:00"
)

var ansiPattern = regexp.MustCompile(`\x1b\[[0-9;]*m`)

// tailLogs читает JSON-лог и возвращает последние maxLogLines записей для вывода.
// Отсутствие файла не ошибка
func tailLogs(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer file.Close()

	var lines []string
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		lines = append(lines, formatLogLine(scanner.Text()))
		if len(lines) > maxLogLines {
			lines = lines[1:]
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return lines, nil
}

// formatLogLine выводит запись zap как "[15:04:05] [LEVEL] msg (key: value)".
// Строки не в JSON возвращаются как есть
func formatLogLine(line string) string {
	var entry map[string]interface{}
	if err := sonic.UnmarshalString(line, &entry); err != nil {
		return line
	}

	level, _ := entry["level"].(string)
	ts, _ := entry["ts"].(string)
	msg, _ := entry["msg"].(string)
	level = ansiPattern.ReplaceAllString(level, "")

	var clock string
	if t, err := time.Parse(logTimeLayout, ts); err == nil {
		clock = t.Format("15:04:05")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "[%s] [%s] %s", clock, level, msg)

	keys := make([]string, 0, len(entry))
	for k := range entry {
		switch k {
		case "level", "ts", "msg", "caller", "stacktrace":
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, " (%s: %v)", k, entry[k])
	}
	return b.String()
}
