package client

import (
	"encoding/json"
	"fmt"
	"net/url"

	"labslot/pkg/model"
)

type Metadata struct {
	TotalCount int64
	Limit      int
	Offset     int64
}

type ResourceClient struct {
	httpClient *HttpClient
}

func NewResourceClient(baseURL string) *ResourceClient {
	return &ResourceClient{
		httpClient: NewHttpClient(baseURL),
	}
}

func (c *ResourceClient) WithToken(token string) *ResourceClient {
	return &ResourceClient{httpClient: c.httpClient.WithToken(token)}
}

func (c *ResourceClient) Create(body any) (*Response, error) {
	return c.httpClient.POST("/api/v1/resources", body)
}

func (c *ResourceClient) GetAll(limit int, offset int64) (*Response, error) {
	path := fmt.Sprintf("/api/v1/resources?limit=%d&offset=%d", limit, offset)
	return c.httpClient.GET(path)
}

func (c *ResourceClient) GetByID(id string) (*Response, error) {
	path := "/api/v1/resources/id/" + url.PathEscape(id)
	return c.httpClient.GET(path)
}

func (c *ResourceClient) Update(id string, body any) (*Response, error) {
	path := "/api/v1/resources/id/" + url.PathEscape(id)
	return c.httpClient.PATCH(path, body)
}

func (c *ResourceClient) Delete(id string) (*Response, error) {
	path := "/api/v1/resources/id/" + url.PathEscape(id)
	return c.httpClient.DELETE(path)
}

func (c *ResourceClient) GetPalette() (*Response, error) {
	return c.httpClient.GET("/api/v1/resources/colors")
}

func (c *ResourceClient) GetFreeColors() (*Response, error) {
	return c.httpClient.GET("/api/v1/resources/colors/free")
}

func (c *ResourceClient) DecodeResource(resp *Response) (*model.Resource, error) {
	var wrapper struct {
		Data json.RawMessage `json:"data"`
	}

	if err := json.Unmarshal(resp.Body, &wrapper); err != nil {
		return nil, fmt.Errorf("could not decode resource wrapper: %w", err)
	}

	var resource model.Resource
	if err := json.Unmarshal(wrapper.Data, &resource); err != nil {
		return nil, fmt.Errorf("could not decode resource json: %w", err)
	}

	return &resource, nil
}

func (c *ResourceClient) DecodeResources(resp *Response) ([]*model.Resource, *Metadata, error) {
	var wrapper struct {
		Data       json.RawMessage `json:"data"`
		TotalCount int64           `json:"total_count"`
		Limit      int             `json:"limit"`
		Offset     int64           `json:"offset"`
	}

	if err := json.Unmarshal(resp.Body, &wrapper); err != nil {
		return nil, nil, fmt.Errorf("could not decode paginated resp: %w", err)
	}

	var resources []*model.Resource
	if err := json.Unmarshal(wrapper.Data, &resources); err != nil {
		return nil, nil, fmt.Errorf("could not decode resource list: %w", err)
	}

	metadata := &Metadata{
		TotalCount: wrapper.TotalCount,
		Limit:      wrapper.Limit,
		Offset:     wrapper.Offset,
	}

	return resources, metadata, nil
}
