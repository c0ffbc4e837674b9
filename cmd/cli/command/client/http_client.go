package client

// http_client.go = talks to the mangako API server on behalf of the CLI.

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"mangako/internal/api/dto"
	"mangako/internal/library"
	"mangako/pkg/models"
)

// ErrConfirmationRequired is returned when the manga must join the library
// before the ownership change can be applied.
var ErrConfirmationRequired = errors.New("manga is not in the library")

// APIError is a non-2xx answer from the server.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.Status, e.Message)
}

type HTTPClient struct {
	baseURL    string
	httpClient *http.Client
}

func NewHTTPClient(apiURL string) *HTTPClient {
	return &HTTPClient{
		baseURL: apiURL,
		httpClient: &http.Client{
			// volume pages may trigger catalog retries server side
			Timeout: 45 * time.Second,
		},
	}
}

// Search: one page of catalog results
func (c *HTTPClient) Search(ctx context.Context, query string, offset int) (*dto.SearchResponse, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("offset", strconv.Itoa(offset))

	var result dto.SearchResponse
	if err := c.do(ctx, http.MethodGet, "/api/search?"+params.Encode(), nil, http.StatusOK, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *HTTPClient) ClearSearchCache(ctx context.Context, query string) error {
	path := "/api/search/cache"
	if query != "" {
		path += "?q=" + url.QueryEscape(query)
	}
	return c.do(ctx, http.MethodDelete, path, nil, http.StatusNoContent, nil)
}

// Volumes returns the pages loaded so far. next loads one more page, refresh starts over.
func (c *HTTPClient) Volumes(ctx context.Context, mangaID string, next, refresh bool) (*library.VolumePage, error) {
	method, path := http.MethodGet, "/api/manga/"+url.PathEscape(mangaID)+"/volumes"
	switch {
	case refresh:
		method, path = http.MethodPost, path+"/refresh"
	case next:
		method, path = http.MethodPost, path+"/next"
	}

	var page library.VolumePage
	if err := c.do(ctx, method, path, nil, http.StatusOK, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

func (c *HTTPClient) ToggleOwned(ctx context.Context, mangaID, volumeID string, confirm bool) (*library.VolumePage, error) {
	params := url.Values{}
	params.Set("manga_id", mangaID)
	if confirm {
		params.Set("confirm", "true")
	}

	var page library.VolumePage
	path := "/api/volumes/" + url.PathEscape(volumeID) + "/toggle?" + params.Encode()
	if err := c.do(ctx, http.MethodPost, path, nil, http.StatusOK, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

func (c *HTTPClient) SetOwned(ctx context.Context, mangaID string, ids []string, owned, confirm bool) (*library.VolumePage, error) {
	req := dto.SetOwnedRequest{IDs: ids, Owned: &owned, Confirm: confirm}

	var page library.VolumePage
	path := "/api/manga/" + url.PathEscape(mangaID) + "/volumes/owned"
	if err := c.do(ctx, http.MethodPut, path, req, http.StatusOK, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// Library CRUD
func (c *HTTPClient) GetLibrary(ctx context.Context, f library.Filter) (*library.CollectionView, error) {
	params := url.Values{}
	if f.Query != "" {
		params.Set("q", f.Query)
	}
	if f.IncompleteOnly {
		params.Set("incomplete", "true")
	}
	if f.SpecialEditionsOnly {
		params.Set("special", "true")
	}

	var view library.CollectionView
	if err := c.do(ctx, http.MethodGet, "/api/library?"+params.Encode(), nil, http.StatusOK, &view); err != nil {
		return nil, err
	}
	return &view, nil
}

func (c *HTTPClient) AddToLibrary(ctx context.Context, mangaID string) (*models.Manga, error) {
	var manga models.Manga
	if err := c.do(ctx, http.MethodPost, "/api/library", dto.AddToLibraryRequest{MangaID: mangaID}, http.StatusCreated, &manga); err != nil {
		return nil, err
	}
	return &manga, nil
}

func (c *HTTPClient) RemoveFromLibrary(ctx context.Context, mangaID string) error {
	return c.do(ctx, http.MethodDelete, "/api/library/"+url.PathEscape(mangaID), nil, http.StatusOK, nil)
}

func (c *HTTPClient) do(ctx context.Context, method, path string, body any, want int, result any) error {
	var reader io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewBuffer(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close() // Ensure the response body is closed

	if resp.StatusCode != want {
		var errBody struct {
			Error                string `json:"error"`
			ConfirmationRequired bool   `json:"confirmation_required"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&errBody)
		if errBody.ConfirmationRequired {
			return ErrConfirmationRequired
		}
		if errBody.Error == "" {
			errBody.Error = resp.Status
		}
		return &APIError{Status: resp.StatusCode, Message: errBody.Error}
	}

	if result == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(result)
}
