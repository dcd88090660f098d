package resource

import (
	"context"
	"net/http"
	"strconv"

	"github.com/vasiliy-maslov/rental-admin-console/internal/apiclient"
	"github.com/vasiliy-maslov/rental-admin-console/internal/paging"
)

// The content API identifies nodes through headers rather than path segments.
const (
	headerParentID = "X-Parent-Id"
	headerNodeID   = "X-Node-Id"
)

type Node struct {
	ID       int64  `json:"id"`
	ParentID *int64 `json:"parentId,omitempty"`
	Kind     string `json:"kind"`
	Title    string `json:"title"`
	Slug     string `json:"slug"`
	Body     string `json:"body,omitempty"`
	MediaURL string `json:"mediaUrl,omitempty"`
}

type NodeInput struct {
	ParentID *int64 `json:"parentId,omitempty"`
	Kind     string `json:"kind"`
	Title    string `json:"title"`
	Slug     string `json:"slug"`
	Body     string `json:"body,omitempty"`
}

type Media struct {
	URL string `json:"url"`
}

type ContentService struct {
	client *apiclient.Client
}

func NewContentService(c *apiclient.Client) *ContentService {
	return &ContentService{client: c}
}

// ListNodes lists the children of parentID; zero lists the root nodes.
func (s *ContentService) ListNodes(ctx context.Context, parentID int64, q paging.Query) (paging.Page[Node], error) {
	opts := []apiclient.Option{apiclient.WithQuery(pageParams(q))}
	if parentID != 0 {
		opts = append(opts, apiclient.WithHeader(headerParentID, strconv.FormatInt(parentID, 10)))
	}
	return apiclient.Get[paging.Page[Node]](ctx, s.client, "/content/nodes", opts...)
}

func (s *ContentService) CreateNode(ctx context.Context, in NodeInput) (Node, error) {
	return apiclient.Send[Node](ctx, s.client, http.MethodPost, "/content/nodes", in)
}

func (s *ContentService) UpdateNode(ctx context.Context, id int64, in NodeInput) (Node, error) {
	return apiclient.Send[Node](ctx, s.client, http.MethodPut, "/content/nodes", in,
		apiclient.WithHeader(headerNodeID, strconv.FormatInt(id, 10)))
}

func (s *ContentService) DeleteNode(ctx context.Context, id int64) error {
	return s.client.Do(ctx, http.MethodDelete, "/content/nodes", nil,
		apiclient.WithHeader(headerNodeID, strconv.FormatInt(id, 10)))
}

func (s *ContentService) UploadMedia(ctx context.Context, nodeID int64, file apiclient.File) (Media, error) {
	if file.Field == "" {
		file.Field = "file"
	}
	return apiclient.Upload[Media](ctx, s.client, "/content/media", []apiclient.File{file}, nil,
		apiclient.WithHeader(headerNodeID, strconv.FormatInt(nodeID, 10)))
}
