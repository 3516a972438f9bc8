package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"
)

// pageSize — фиксированный размер страницы для листингов GitHub.
const pageSize = "100"

// FetchAll обходит link-based пагинацию провайдера и склеивает все
// страницы в одну последовательность в порядке прихода. Любая ошибка
// на любой странице (транспорт или статус >= 400) роняет весь обход:
// частично собранные страницы отбрасываются, а не возвращаются.
func (c *Client) FetchAll(ctx context.Context, startURL string, auth Auth, headers map[string]string, timeout time.Duration) ([]json.RawMessage, error) {
	next, err := withPageSize(startURL)
	if err != nil {
		return nil, fmt.Errorf("pagination: bad start url: %w", err)
	}

	var all []json.RawMessage
	for next != "" {
		resp, err := c.Do(ctx, Call{URL: next, Auth: auth, Headers: headers, Timeout: timeout})
		if err != nil {
			return nil, err
		}
		if err := resp.Err(); err != nil {
			return nil, err
		}

		items, err := extractItems(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("pagination: %w", err)
		}
		all = append(all, items...)

		// Отсутствие rel="next" — нормальное завершение обхода.
		next = nextLink(resp.Header.Get("Link"))
	}
	return all, nil
}

// withPageSize добавляет per_page к начальному URL. Последующие URL
// приходят готовыми из Link-заголовка и не трогаются.
func withPageSize(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set("per_page", pageSize)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// extractItems достает последовательность элементов из тела страницы.
// Провайдер отдает одну из трех форм: голый массив, объект с полем
// runners, объект с полем runner_groups.
func extractItems(body []byte) ([]json.RawMessage, error) {
	var asList []json.RawMessage
	if err := json.Unmarshal(body, &asList); err == nil {
		return asList, nil
	}

	var asObject struct {
		Runners      []json.RawMessage `json:"runners"`
		RunnerGroups []json.RawMessage `json:"runner_groups"`
	}
	if err := json.Unmarshal(body, &asObject); err != nil {
		return nil, fmt.Errorf("unrecognized page shape: %w", err)
	}
	if asObject.Runners != nil {
		return asObject.Runners, nil
	}
	if asObject.RunnerGroups != nil {
		return asObject.RunnerGroups, nil
	}
	return nil, nil
}

// nextLink разбирает RFC-5988 заголовок Link и возвращает URL со
// связью rel="next", либо пустую строку.
func nextLink(header string) string {
	if header == "" {
		return ""
	}
	for _, part := range strings.Split(header, ",") {
		section := strings.Split(part, ";")
		if len(section) < 2 {
			continue
		}
		target := strings.Trim(strings.TrimSpace(section[0]), "<>")
		for _, param := range section[1:] {
			if strings.TrimSpace(param) == `rel="next"` {
				return target
			}
		}
	}
	return ""
}
