package graph

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/teemow/meetfinder/internal/directory"
	"github.com/teemow/meetfinder/internal/instrumentation"
)

const defaultSearchLimit = 10

type user struct {
	DisplayName       string `json:"displayName"`
	Mail              string `json:"mail"`
	UserPrincipalName string `json:"userPrincipalName"`
}

func (u user) person() directory.Person {
	email := u.Mail
	if email == "" {
		email = u.UserPrincipalName
	}
	return directory.Person{DisplayName: u.DisplayName, Email: email, UserPrincipalName: u.UserPrincipalName}
}

// SearchUsers returns users whose display name, mail or principal name
// starts with query.
func (c *Client) SearchUsers(ctx context.Context, query string, limit int) ([]directory.Person, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("search query is required")
	}
	if limit <= 0 {
		limit = defaultSearchLimit
	}

	q := escapeODataString(query)
	params := url.Values{}
	params.Set("$select", "displayName,userPrincipalName,mail")
	params.Set("$filter", fmt.Sprintf("startsWith(displayName,'%s') or startsWith(userPrincipalName,'%s') or startsWith(mail,'%s')", q, q, q))
	params.Set("$top", strconv.Itoa(limit))

	var resp struct {
		Value []user `json:"value"`
	}
	err := c.observe(ctx, instrumentation.OperationSearchUsers, func(ctx context.Context) error {
		return c.Do(ctx, http.MethodGet, "/users", params, nil, &resp)
	})
	if err != nil {
		return nil, err
	}

	people := make([]directory.Person, 0, len(resp.Value))
	for _, u := range resp.Value {
		people = append(people, u.person())
	}
	return people, nil
}

// Me returns the signed-in user.
func (c *Client) Me(ctx context.Context) (*directory.Person, error) {
	params := url.Values{}
	params.Set("$select", "displayName,userPrincipalName,mail")

	var u user
	err := c.observe(ctx, instrumentation.OperationMe, func(ctx context.Context) error {
		return c.Do(ctx, http.MethodGet, "/me", params, nil, &u)
	})
	if err != nil {
		return nil, err
	}
	p := u.person()
	return &p, nil
}

// escapeODataString doubles single quotes for use inside an OData literal.
func escapeODataString(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}
