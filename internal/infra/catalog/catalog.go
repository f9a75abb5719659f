// Package catalog holds the fixed, ordered catalog of operations the
// gateway advertises. Adding an operation means adding a descriptor here
// and a matching implementation in infra/tools; the dispatcher trusts
// that every descriptor name resolves.
package catalog

import (
	"encoding/json"

	"github.com/google/jsonschema-go/jsonschema"

	"dbxmcp/internal/domain"
)

var descriptors = []domain.ToolDescriptor{
	{
		Name:        "list_folder",
		Description: "List files and folders in a Dropbox directory. Returns file names, sizes, and modification dates.",
		InputSchema: objectSchema(props{
			"path":      {Type: "string", Description: "Dropbox folder path (use '' for root, '/folder' for subfolder)"},
			"recursive": {Type: "boolean", Description: "Include contents of subfolders", Default: rawFalse},
			"limit":     {Type: "integer", Description: "Maximum number of entries to return", Default: rawJSON(100)},
		}),
	},
	{
		Name:        "search_files",
		Description: "Search for files and folders in Dropbox by name or content.",
		InputSchema: objectSchema(props{
			"query": {Type: "string", Description: "Search query (searches file names and content)"},
			"path":  {Type: "string", Description: "Limit search to this folder path (optional)"},
			"file_extensions": {
				Type:        "array",
				Items:       &jsonschema.Schema{Type: "string"},
				Description: "Filter by file extensions (e.g., ['pdf', 'docx'])",
			},
			"max_results": {Type: "integer", Description: "Maximum results to return", Default: rawJSON(50)},
		}, "query"),
	},
	{
		Name:        "get_file_metadata",
		Description: "Get detailed metadata for a file or folder including size, dates, and sharing info.",
		InputSchema: objectSchema(props{
			"path": {Type: "string", Description: "Full path to the file or folder"},
		}, "path"),
	},
	{
		Name:        "download_file",
		Description: "Download a file from Dropbox and return its contents (text files) or base64 (binary).",
		InputSchema: objectSchema(props{
			"path":    {Type: "string", Description: "Full path to the file in Dropbox"},
			"as_text": {Type: "boolean", Description: "Return as text (true) or base64 (false)", Default: rawTrue},
		}, "path"),
	},
	{
		Name:        "read_text_file",
		Description: "Read the text content of a file (txt, md, csv, json, etc.).",
		InputSchema: objectSchema(props{
			"path":      {Type: "string", Description: "Full path to the text file"},
			"max_bytes": {Type: "integer", Description: "Maximum bytes to read (for large files)", Default: rawJSON(1000000)},
		}, "path"),
	},
	{
		Name:        "upload_file",
		Description: "Upload a file to Dropbox. Supports text content or base64-encoded binary.",
		InputSchema: objectSchema(props{
			"path":      {Type: "string", Description: "Destination path in Dropbox (e.g., '/Reports/Q4_Report.pdf')"},
			"content":   {Type: "string", Description: "File content (text or base64-encoded)"},
			"is_base64": {Type: "boolean", Description: "Set to true if content is base64-encoded", Default: rawFalse},
			"overwrite": {Type: "boolean", Description: "Overwrite if file exists", Default: rawTrue},
		}, "path", "content"),
	},
	{
		Name:        "create_folder",
		Description: "Create a new folder in Dropbox.",
		InputSchema: objectSchema(props{
			"path": {Type: "string", Description: "Full path for the new folder"},
		}, "path"),
	},
	{
		Name:        "move_file",
		Description: "Move or rename a file or folder.",
		InputSchema: objectSchema(props{
			"from_path": {Type: "string", Description: "Current path of the file/folder"},
			"to_path":   {Type: "string", Description: "New path for the file/folder"},
		}, "from_path", "to_path"),
	},
	{
		Name:        "copy_file",
		Description: "Copy a file or folder to a new location.",
		InputSchema: objectSchema(props{
			"from_path": {Type: "string", Description: "Source path"},
			"to_path":   {Type: "string", Description: "Destination path"},
		}, "from_path", "to_path"),
	},
	{
		Name:        "delete_file",
		Description: "Delete a file or folder (moves to trash, can be recovered).",
		InputSchema: objectSchema(props{
			"path": {Type: "string", Description: "Path to delete"},
		}, "path"),
	},
	{
		Name:        "get_shared_link",
		Description: "Get or create a shared link for a file or folder.",
		InputSchema: objectSchema(props{
			"path":              {Type: "string", Description: "Path to the file/folder"},
			"create_if_missing": {Type: "boolean", Description: "Create a new link if none exists", Default: rawTrue},
		}, "path"),
	},
	{
		Name:        "list_revisions",
		Description: "List previous versions of a file.",
		InputSchema: objectSchema(props{
			"path":  {Type: "string", Description: "Path to the file"},
			"limit": {Type: "integer", Description: "Maximum revisions to return", Default: rawJSON(10)},
		}, "path"),
	},
	{
		Name:        "get_space_usage",
		Description: "Get Dropbox account storage usage and quota.",
		InputSchema: objectSchema(props{}),
	},
	{
		Name:        "test_connection",
		Description: "Test the Dropbox API connection and return account info.",
		InputSchema: objectSchema(props{}),
	},
}

// Descriptors returns the full ordered catalog. The returned slice is
// shared and must be treated as read-only.
func Descriptors() []domain.ToolDescriptor {
	return descriptors
}

type props map[string]*jsonschema.Schema

func objectSchema(properties props, required ...string) *jsonschema.Schema {
	schema := &jsonschema.Schema{
		Type:       "object",
		Properties: map[string]*jsonschema.Schema{},
	}
	for name, prop := range properties {
		schema.Properties[name] = prop
	}
	if required == nil {
		required = []string{}
	}
	schema.Required = required
	return schema
}

var (
	rawTrue  = json.RawMessage("true")
	rawFalse = json.RawMessage("false")
)

func rawJSON(v int) json.RawMessage {
	raw, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return json.RawMessage(raw)
}
