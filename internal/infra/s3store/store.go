// Package s3store implements domain.Backend against Amazon S3 or any
// S3-compatible object store. Folders are synthesized from key prefixes
// (with zero-byte "dir/" marker objects for explicitly created folders),
// revisions map to object versions, and shared links to presigned GETs.
package s3store

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"go.uber.org/zap"

	"dbxmcp/internal/domain"
)

const defaultPresignExpiry = 15 * time.Minute

type Config struct {
	// Client is the configured S3 client.
	Client *s3.Client

	// Bucket is the bucket all paths resolve into. It must already exist.
	Bucket string

	// KeyPrefix is an optional prefix for all object keys.
	KeyPrefix string

	// PresignExpiry bounds the lifetime of generated shared links.
	PresignExpiry time.Duration

	Logger *zap.Logger
}

type Store struct {
	client        *s3.Client
	presign       *s3.PresignClient
	bucket        string
	keyPrefix     string
	presignExpiry time.Duration
	logger        *zap.Logger
}

func New(cfg Config) (*Store, error) {
	if cfg.Client == nil {
		return nil, errors.New("s3 client is required")
	}
	if cfg.Bucket == "" {
		return nil, errors.New("bucket name is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	expiry := cfg.PresignExpiry
	if expiry <= 0 {
		expiry = defaultPresignExpiry
	}
	return &Store{
		client:        cfg.Client,
		presign:       s3.NewPresignClient(cfg.Client),
		bucket:        cfg.Bucket,
		keyPrefix:     cfg.KeyPrefix,
		presignExpiry: expiry,
		logger:        logger.Named("s3store"),
	}, nil
}

// keyFor maps an opaque slash-separated path onto an object key.
func (s *Store) keyFor(p string) string {
	return s.keyPrefix + strings.TrimPrefix(p, "/")
}

// dirPrefix maps a folder path onto a trailing-slash key prefix;
// the root maps to the bare key prefix.
func (s *Store) dirPrefix(p string) string {
	key := s.keyFor(p)
	if key == "" || strings.HasSuffix(key, "/") {
		return key
	}
	return key + "/"
}

// pathFor is the inverse of keyFor, for display paths.
func (s *Store) pathFor(key string) string {
	return "/" + strings.TrimPrefix(key, s.keyPrefix)
}

// listCursor is the opaque continuation cursor handed to callers. It
// carries the full listing position so ListFolderContinue needs nothing
// else.
type listCursor struct {
	Token     string `json:"token"`
	Prefix    string `json:"prefix"`
	Delimiter string `json:"delimiter"`
	MaxKeys   int32  `json:"maxKeys"`
}

func encodeCursor(c listCursor) string {
	raw, _ := json.Marshal(c)
	return base64.StdEncoding.EncodeToString(raw)
}

func decodeCursor(cursor string) (listCursor, error) {
	raw, err := base64.StdEncoding.DecodeString(cursor)
	if err != nil {
		return listCursor{}, err
	}
	var c listCursor
	if err := json.Unmarshal(raw, &c); err != nil {
		return listCursor{}, err
	}
	return c, nil
}

func (s *Store) ListFolder(ctx context.Context, folderPath string, recursive bool, limit int) (domain.Page, error) {
	if limit <= 0 || limit > domain.MaxListPageSize {
		limit = domain.MaxListPageSize
	}
	cursor := listCursor{
		Prefix:  s.dirPrefix(folderPath),
		MaxKeys: int32(limit),
	}
	if !recursive {
		cursor.Delimiter = "/"
	}
	return s.listPage(ctx, cursor)
}

func (s *Store) ListFolderContinue(ctx context.Context, cursor string) (domain.Page, error) {
	decoded, err := decodeCursor(cursor)
	if err != nil {
		return domain.Page{}, domain.BackendFault(domain.FaultOther, "list_folder/continue", "invalid cursor", err)
	}
	return s.listPage(ctx, decoded)
}

func (s *Store) listPage(ctx context.Context, cursor listCursor) (domain.Page, error) {
	input := &s3.ListObjectsV2Input{
		Bucket:  aws.String(s.bucket),
		Prefix:  aws.String(cursor.Prefix),
		MaxKeys: aws.Int32(cursor.MaxKeys),
	}
	if cursor.Delimiter != "" {
		input.Delimiter = aws.String(cursor.Delimiter)
	}
	if cursor.Token != "" {
		input.ContinuationToken = aws.String(cursor.Token)
	}

	out, err := s.client.ListObjectsV2(ctx, input)
	if err != nil {
		return domain.Page{}, mapError("list_folder", err)
	}

	entries := make([]domain.Entry, 0, len(out.Contents)+len(out.CommonPrefixes))
	for _, common := range out.CommonPrefixes {
		if common.Prefix == nil {
			continue
		}
		dir := strings.TrimSuffix(*common.Prefix, "/")
		entries = append(entries, domain.Entry{
			Name:        path.Base(dir),
			PathDisplay: s.pathFor(dir),
			Type:        domain.EntryFolder,
		})
	}
	for _, obj := range out.Contents {
		if obj.Key == nil || strings.HasSuffix(*obj.Key, "/") {
			// Folder markers are surfaced via CommonPrefixes.
			continue
		}
		entries = append(entries, s.objectEntry(*obj.Key, obj.Size, obj.LastModified, obj.ETag))
	}

	page := domain.Page{Entries: entries}
	if aws.ToBool(out.IsTruncated) && out.NextContinuationToken != nil {
		cursor.Token = *out.NextContinuationToken
		page.Cursor = encodeCursor(cursor)
		page.HasMore = true
	}
	return page, nil
}

func (s *Store) objectEntry(key string, size *int64, modified *time.Time, etag *string) domain.Entry {
	entry := domain.Entry{
		Name:           path.Base(key),
		PathDisplay:    s.pathFor(key),
		Type:           domain.EntryFile,
		IsDownloadable: true,
	}
	if size != nil {
		entry.Size = *size
	}
	if modified != nil {
		entry.ServerModified = *modified
	}
	if etag != nil {
		rev := strings.Trim(*etag, `"`)
		entry.Rev = rev
		entry.ContentHash = rev
	}
	return entry
}

func (s *Store) Search(ctx context.Context, query string, opts domain.SearchOptions) ([]domain.Entry, error) {
	maxResults := opts.MaxResults
	if maxResults <= 0 {
		maxResults = domain.DefaultSearchResults
	}

	needle := strings.ToLower(query)
	extensions := make([]string, 0, len(opts.FileExtensions))
	for _, ext := range opts.FileExtensions {
		extensions = append(extensions, strings.ToLower(strings.TrimPrefix(ext, ".")))
	}

	var matches []domain.Entry
	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(s.dirPrefix(opts.Path)),
	})
	for paginator.HasMorePages() && len(matches) < maxResults {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, mapError("search", err)
		}
		for _, obj := range page.Contents {
			if obj.Key == nil || strings.HasSuffix(*obj.Key, "/") {
				continue
			}
			name := strings.ToLower(path.Base(*obj.Key))
			if !strings.Contains(name, needle) {
				continue
			}
			if len(extensions) > 0 && !hasExtension(name, extensions) {
				continue
			}
			matches = append(matches, s.objectEntry(*obj.Key, obj.Size, obj.LastModified, obj.ETag))
			if len(matches) >= maxResults {
				break
			}
		}
	}
	return matches, nil
}

func hasExtension(name string, extensions []string) bool {
	ext := strings.TrimPrefix(path.Ext(name), ".")
	for _, candidate := range extensions {
		if ext == candidate {
			return true
		}
	}
	return false
}

func (s *Store) GetMetadata(ctx context.Context, filePath string) (domain.Entry, error) {
	key := s.keyFor(filePath)
	head, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err == nil {
		entry := s.objectEntry(key, head.ContentLength, head.LastModified, head.ETag)
		entry.ClientModified = entry.ServerModified
		return entry, nil
	}

	mapped := mapError("get_metadata", err)
	if mapped.Kind != domain.FaultNotFound {
		return domain.Entry{}, mapped
	}

	// No object at the key; a folder exists if anything lives under it.
	prefix := s.dirPrefix(filePath)
	out, listErr := s.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket:  aws.String(s.bucket),
		Prefix:  aws.String(prefix),
		MaxKeys: aws.Int32(1),
	})
	if listErr != nil {
		return domain.Entry{}, mapError("get_metadata", listErr)
	}
	if len(out.Contents) == 0 {
		return domain.Entry{}, domain.BackendFault(domain.FaultNotFound, "get_metadata", "path/not_found/"+filePath, nil)
	}
	dir := strings.TrimSuffix(prefix, "/")
	return domain.Entry{
		Name:        path.Base(dir),
		PathDisplay: s.pathFor(dir),
		Type:        domain.EntryFolder,
	}, nil
}

func (s *Store) Download(ctx context.Context, filePath string) (domain.FileContent, error) {
	key := s.keyFor(filePath)
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return domain.FileContent{}, mapError("download", err)
	}
	defer func() { _ = out.Body.Close() }()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return domain.FileContent{}, domain.BackendFault(domain.FaultOther, "download", "read object body", err)
	}

	entry := s.objectEntry(key, out.ContentLength, out.LastModified, out.ETag)
	entry.Size = int64(len(data))
	return domain.FileContent{Meta: entry, Data: data}, nil
}

func (s *Store) Upload(ctx context.Context, filePath string, data []byte, mode domain.WriteMode) (domain.Entry, error) {
	key := s.keyFor(filePath)

	if mode == domain.WriteModeAdd {
		_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(key),
		})
		if err == nil {
			return domain.Entry{}, domain.BackendFault(domain.FaultConflict, "upload", "path/conflict/file/"+filePath, nil)
		}
		if mapped := mapError("upload", err); mapped.Kind != domain.FaultNotFound {
			return domain.Entry{}, mapped
		}
	}

	put, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(data),
	})
	if err != nil {
		return domain.Entry{}, mapError("upload", err)
	}

	now := time.Now().UTC()
	entry := s.objectEntry(key, aws.Int64(int64(len(data))), &now, put.ETag)
	return entry, nil
}

func (s *Store) CreateFolder(ctx context.Context, folderPath string) (domain.Entry, error) {
	marker := s.dirPrefix(folderPath)
	if marker == s.keyPrefix {
		return domain.Entry{}, domain.BackendFault(domain.FaultOther, "create_folder", "cannot create the root folder", nil)
	}

	out, err := s.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket:  aws.String(s.bucket),
		Prefix:  aws.String(marker),
		MaxKeys: aws.Int32(1),
	})
	if err != nil {
		return domain.Entry{}, mapError("create_folder", err)
	}
	if len(out.Contents) > 0 {
		return domain.Entry{}, domain.BackendFault(domain.FaultConflict, "create_folder", "path/conflict/folder/"+folderPath, nil)
	}

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(marker),
		Body:   bytes.NewReader(nil),
	})
	if err != nil {
		return domain.Entry{}, mapError("create_folder", err)
	}

	dir := strings.TrimSuffix(marker, "/")
	return domain.Entry{
		Name:        path.Base(dir),
		PathDisplay: s.pathFor(dir),
		Type:        domain.EntryFolder,
	}, nil
}

func (s *Store) Move(ctx context.Context, fromPath, toPath string) (domain.Entry, error) {
	entry, err := s.Copy(ctx, fromPath, toPath)
	if err != nil {
		return domain.Entry{}, err
	}
	_, err = s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.keyFor(fromPath)),
	})
	if err != nil {
		return domain.Entry{}, mapError("move", err)
	}
	return entry, nil
}

func (s *Store) Copy(ctx context.Context, fromPath, toPath string) (domain.Entry, error) {
	srcKey := s.keyFor(fromPath)
	dstKey := s.keyFor(toPath)

	_, err := s.client.CopyObject(ctx, &s3.CopyObjectInput{
		Bucket:     aws.String(s.bucket),
		CopySource: aws.String(copySource(s.bucket, srcKey)),
		Key:        aws.String(dstKey),
	})
	if err != nil {
		return domain.Entry{}, mapError("copy", err)
	}

	return s.GetMetadata(ctx, toPath)
}

// copySource escapes each key segment; slashes stay literal.
func copySource(bucket, key string) string {
	segments := strings.Split(key, "/")
	for i, segment := range segments {
		segments[i] = strings.ReplaceAll(segment, "%", "%25")
	}
	return bucket + "/" + strings.Join(segments, "/")
}

func (s *Store) Delete(ctx context.Context, filePath string) (domain.Entry, error) {
	entry, err := s.GetMetadata(ctx, filePath)
	if err != nil {
		return domain.Entry{}, err
	}

	if entry.Type == domain.EntryFolder {
		if err := s.deletePrefix(ctx, s.dirPrefix(filePath)); err != nil {
			return domain.Entry{}, err
		}
		return entry, nil
	}

	_, err = s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.keyFor(filePath)),
	})
	if err != nil {
		return domain.Entry{}, mapError("delete", err)
	}
	return entry, nil
}

// deletePrefix removes every object under prefix, batching deletes the
// way S3 requires (max 1000 keys per request).
func (s *Store) deletePrefix(ctx context.Context, prefix string) error {
	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(prefix),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return mapError("delete", err)
		}
		if len(page.Contents) == 0 {
			continue
		}
		objects := make([]types.ObjectIdentifier, 0, len(page.Contents))
		for _, obj := range page.Contents {
			objects = append(objects, types.ObjectIdentifier{Key: obj.Key})
		}
		_, err = s.client.DeleteObjects(ctx, &s3.DeleteObjectsInput{
			Bucket: aws.String(s.bucket),
			Delete: &types.Delete{Objects: objects, Quiet: aws.Bool(true)},
		})
		if err != nil {
			return mapError("delete", err)
		}
	}
	return nil
}

// ListSharedLinks always reports none: presigned links are not
// enumerable, so every shared link for S3 content is freshly minted.
func (s *Store) ListSharedLinks(ctx context.Context, filePath string) ([]domain.SharedLink, error) {
	return nil, nil
}

func (s *Store) CreateSharedLink(ctx context.Context, filePath string) (domain.SharedLink, error) {
	key := s.keyFor(filePath)
	req, err := s.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(s.presignExpiry))
	if err != nil {
		return domain.SharedLink{}, mapError("create_shared_link", err)
	}
	return domain.SharedLink{
		URL:       req.URL,
		PathLower: strings.ToLower(s.pathFor(key)),
	}, nil
}

func (s *Store) ListRevisions(ctx context.Context, filePath string, limit int) ([]domain.Revision, error) {
	if limit <= 0 {
		limit = domain.DefaultRevisionLimit
	}
	key := s.keyFor(filePath)

	out, err := s.client.ListObjectVersions(ctx, &s3.ListObjectVersionsInput{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(key),
	})
	if err != nil {
		return nil, mapError("list_revisions", err)
	}

	revisions := make([]domain.Revision, 0, limit)
	for _, version := range out.Versions {
		if version.Key == nil || *version.Key != key {
			continue
		}
		rev := domain.Revision{}
		if version.VersionId != nil {
			rev.Rev = *version.VersionId
		}
		if version.Size != nil {
			rev.Size = *version.Size
		}
		if version.LastModified != nil {
			rev.ServerModified = *version.LastModified
		}
		revisions = append(revisions, rev)
		if len(revisions) >= limit {
			break
		}
	}
	return revisions, nil
}

// SpaceUsage sums object sizes under the key prefix. S3 imposes no
// allocation ceiling, so Allocated stays zero (unlimited).
func (s *Store) SpaceUsage(ctx context.Context) (domain.SpaceUsage, error) {
	var used int64
	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(s.keyPrefix),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return domain.SpaceUsage{}, mapError("space_usage", err)
		}
		for _, obj := range page.Contents {
			if obj.Size != nil {
				used += *obj.Size
			}
		}
	}
	return domain.SpaceUsage{Used: used}, nil
}

func (s *Store) CurrentAccount(ctx context.Context) (domain.Account, error) {
	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(s.bucket),
	})
	if err != nil {
		return domain.Account{}, mapError("current_account", err)
	}
	return domain.Account{
		AccountID:   s.bucket,
		DisplayName: "s3://" + s.bucket,
		AccountType: "s3",
	}, nil
}

var _ domain.Backend = (*Store)(nil)
