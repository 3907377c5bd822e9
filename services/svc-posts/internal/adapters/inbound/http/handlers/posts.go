package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/architeacher/posts/services/svc-posts/internal/domain/model"
	"github.com/architeacher/posts/services/svc-posts/internal/usecases"
	"github.com/architeacher/posts/services/svc-posts/internal/usecases/commands"
	"github.com/architeacher/posts/services/svc-posts/internal/usecases/queries"
	"github.com/go-chi/chi/v5"
)

const (
	defaultMaxBodyBytes = 1 << 20

	headerTotalCount = "X-Total-Count"
	headerLink       = "Link"
	headerLocation   = "Location"

	applicationMergePatch = "application/merge-patch+json"

	postsPath = "/api/posts"
)

var (
	errInvalidJSON          = errors.New("invalid request body")
	errUnsupportedMediaType = errors.New("unsupported media type")
)

type PostHandler struct {
	app          *usecases.Application
	maxBodyBytes int64
}

func NewPostHandler(app *usecases.Application, maxBodyBytes int64) *PostHandler {
	if maxBodyBytes <= 0 {
		maxBodyBytes = defaultMaxBodyBytes
	}

	return &PostHandler{
		app:          app,
		maxBodyBytes: maxBodyBytes,
	}
}

// Routes mounts the post endpoints. Static segments are registered before
// the id pattern so "count" never parses as an id.
func (h *PostHandler) Routes(r chi.Router) {
	r.Get("/posts", h.ListPosts)
	r.Post("/posts", h.CreatePost)
	r.Get("/posts/count", h.CountPosts)
	r.Get("/posts/{id}", h.GetPost)
	r.Put("/posts/{id}", h.UpdatePost)
	r.Patch("/posts/{id}", h.PatchPost)
	r.Delete("/posts/{id}", h.DeletePost)
	r.Get("/_search/posts", h.SearchPosts)
}

func (h *PostHandler) ListPosts(w http.ResponseWriter, r *http.Request) {
	values := r.URL.Query()

	criteria, err := model.ParsePostCriteria(criteriaParams(values))
	if err != nil {
		writeError(w, r, err)

		return
	}

	pageable, err := parsePageable(values)
	if err != nil {
		writeError(w, r, err)

		return
	}

	page, err := h.app.Queries.ListPosts.Execute(r.Context(), queries.ListPostsQuery{
		Criteria: criteria,
		Pageable: pageable,
	})
	if err != nil {
		writeError(w, r, err)

		return
	}

	setPaginationHeaders(w, r.URL, pageable, page.Total)
	writeJSONResponse(w, http.StatusOK, toPostDTOs(page.Posts))
}

func (h *PostHandler) CountPosts(w http.ResponseWriter, r *http.Request) {
	criteria, err := model.ParsePostCriteria(criteriaParams(r.URL.Query()))
	if err != nil {
		writeError(w, r, err)

		return
	}

	count, err := h.app.Queries.CountPosts.Execute(r.Context(), queries.CountPostsQuery{Criteria: criteria})
	if err != nil {
		writeError(w, r, err)

		return
	}

	writeJSONResponse(w, http.StatusOK, count)
}

func (h *PostHandler) GetPost(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)

		return
	}

	post, err := h.app.Queries.GetPost.Execute(r.Context(), queries.GetPostQuery{ID: id})
	if err != nil {
		writeError(w, r, err)

		return
	}

	writeJSONResponse(w, http.StatusOK, toPostDTO(post))
}

func (h *PostHandler) CreatePost(w http.ResponseWriter, r *http.Request) {
	var req postDTO
	if err := h.decode(w, r, &req); err != nil {
		h.writeDecodeError(w, r, err)

		return
	}

	post, err := h.app.Commands.CreatePost.Handle(r.Context(), commands.CreatePostCommand{Post: req.toDomain()})
	if err != nil {
		writeError(w, r, err)

		return
	}

	w.Header().Set(headerLocation, fmt.Sprintf("%s/%d", postsPath, post.ID))
	writeJSONResponse(w, http.StatusCreated, toPostDTO(post))
}

func (h *PostHandler) UpdatePost(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)

		return
	}

	var req postDTO
	if err := h.decode(w, r, &req); err != nil {
		h.writeDecodeError(w, r, err)

		return
	}

	post, err := h.app.Commands.UpdatePost.Handle(r.Context(), commands.UpdatePostCommand{
		ID:   id,
		Post: req.toDomain(),
	})
	if err != nil {
		writeError(w, r, err)

		return
	}

	writeJSONResponse(w, http.StatusOK, toPostDTO(post))
}

// PatchPost applies a JSON merge patch: absent members are kept and null
// members are cleared.
func (h *PostHandler) PatchPost(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)

		return
	}

	if !acceptsPatchMediaType(r.Header.Get(contentTypeHeader)) {
		writeProblem(w, r, http.StatusUnsupportedMediaType, errUnsupportedMediaType.Error(), nil)

		return
	}

	var req patchPostDTO
	if err := h.decode(w, r, &req); err != nil {
		h.writeDecodeError(w, r, err)

		return
	}

	post, err := h.app.Commands.PatchPost.Handle(r.Context(), commands.PatchPostCommand{
		ID:     id,
		BodyID: req.bodyID(),
		Patch:  req.toDomain(),
	})
	if err != nil {
		writeError(w, r, err)

		return
	}

	writeJSONResponse(w, http.StatusOK, toPostDTO(post))
}

func (h *PostHandler) DeletePost(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)

		return
	}

	if _, err := h.app.Commands.DeletePost.Handle(r.Context(), commands.DeletePostCommand{ID: id}); err != nil {
		writeError(w, r, err)

		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// SearchPosts answers from the search index only.
func (h *PostHandler) SearchPosts(w http.ResponseWriter, r *http.Request) {
	values := r.URL.Query()

	pageable, err := parsePageable(values)
	if err != nil {
		writeError(w, r, err)

		return
	}

	result, err := h.app.Queries.SearchPosts.Execute(r.Context(), queries.SearchPostsQuery{
		Query:    values.Get(paramQuery),
		Pageable: pageable,
	})
	if err != nil {
		writeError(w, r, err)

		return
	}

	posts := make([]postDTO, len(result.Posts))
	for i, record := range result.Posts {
		posts[i] = toPostDTO(record.Post())
	}

	setPaginationHeaders(w, r.URL, pageable, result.Total)
	writeJSONResponse(w, http.StatusOK, posts)
}

func (h *PostHandler) decode(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBodyBytes)

	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return err
		}

		return fmt.Errorf("%w: %w", errInvalidJSON, err)
	}

	return nil
}

func (h *PostHandler) writeDecodeError(w http.ResponseWriter, r *http.Request, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		writeProblem(w, r, http.StatusRequestEntityTooLarge, "request body too large", nil)

		return
	}

	writeProblem(w, r, http.StatusBadRequest, errInvalidJSON.Error(), nil)
}

func acceptsPatchMediaType(header string) bool {
	if header == "" {
		return true
	}

	mediaType, _, err := mime.ParseMediaType(header)
	if err != nil {
		return false
	}

	return mediaType == applicationMergePatch || mediaType == applicationJSON
}

// setPaginationHeaders writes the total count and RFC 5988 navigation links.
func setPaginationHeaders(w http.ResponseWriter, u *url.URL, pageable model.Pageable, total int64) {
	w.Header().Set(headerTotalCount, strconv.FormatInt(total, 10))

	if pageable.Size == 0 {
		return
	}

	size := int64(pageable.Size)
	page := int64(pageable.Page)
	lastPage := max((total+size-1)/size-1, 0)

	var links []string

	if page < lastPage {
		links = append(links, pageLink(u, page+1, size, "next"))
	}

	if page > 0 {
		links = append(links, pageLink(u, min(page-1, lastPage), size, "prev"))
	}

	links = append(links,
		pageLink(u, lastPage, size, "last"),
		pageLink(u, 0, size, "first"),
	)

	w.Header().Set(headerLink, strings.Join(links, ","))
}

func pageLink(u *url.URL, page, size int64, rel string) string {
	values := u.Query()
	values.Set(paramPage, strconv.FormatInt(page, 10))
	values.Set(paramSize, strconv.FormatInt(size, 10))

	link := url.URL{Path: u.Path, RawQuery: values.Encode()}

	return fmt.Sprintf("<%s>; rel=%q", link.String(), rel)
}
