// Package mcp exposes a library over the Model Context Protocol, so that
// agents can resolve file directories, browse the group tree, and look up
// entries without parsing the library file themselves.
package mcp

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/reflib/reflib/internal/bib"
	"github.com/reflib/reflib/internal/config"
	"github.com/reflib/reflib/internal/dispatch"
	"github.com/reflib/reflib/internal/filelink"
	"github.com/reflib/reflib/internal/groups"
	"github.com/reflib/reflib/internal/groupview"
	"github.com/reflib/reflib/internal/library"
	"github.com/reflib/reflib/internal/prefs"
)

// Server wraps the MCP server around one loaded library.
type Server struct {
	server *mcp.Server
	libCtx *bib.Context
	prefs  prefs.FilePreferences
}

// NewServer loads the library at libraryPath and the local preferences and
// builds a server exposing them as tools.
func NewServer(libraryPath string) (*Server, error) {
	if libraryPath == "" {
		return nil, errors.New("no library file given")
	}
	libCtx, err := library.Load(libraryPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load library: %w", err)
	}
	filePrefs, err := prefs.Load(config.GetPreferencesPath())
	if err != nil {
		return nil, fmt.Errorf("failed to load preferences: %w", err)
	}

	mcpServer := mcp.NewServer(&mcp.Implementation{
		Name:    "reflib",
		Version: "0.1.0",
	}, nil)

	s := &Server{
		server: mcpServer,
		libCtx: libCtx,
		prefs:  filePrefs,
	}

	s.registerTools()

	return s, nil
}

// Run starts the MCP server with stdio transport
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "reflib_dirs",
		Description: "Resolve the ordered directories searched for files linked from entries",
	}, s.handleDirs)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "reflib_groups",
		Description: "List the group tree with the number of matching entries per group",
	}, s.handleGroups)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "reflib_search",
		Description: "Find entries whose field contains a word",
	}, s.handleSearch)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "reflib_locate",
		Description: "Locate the files linked from an entry on disk",
	}, s.handleLocate)
}

// Input/Output types for each tool

type DirsInput struct {
	Field *string `json:"field,omitempty" jsonschema:"description=Field whose directories to resolve (default: file)"`
}

type DirsOutput struct {
	Directories   []string `json:"directories"`
	FirstExisting string   `json:"firstExisting,omitempty"`
}

type GroupsInput struct {
	Filter *string `json:"filter,omitempty" jsonschema:"description=Only return groups whose name contains the text"`
}

type GroupsOutput struct {
	Groups []GroupInfo `json:"groups"`
}

type GroupInfo struct {
	Path        string `json:"path"`
	Name        string `json:"name"`
	Hits        int    `json:"hits"`
	Description string `json:"description,omitempty"`
}

type SearchInput struct {
	Field string `json:"field" jsonschema:"required,description=Field to search, e.g. keywords"`
	Word  string `json:"word" jsonschema:"required,description=Word that must occur in the field"`
}

type SearchOutput struct {
	Keys  []string `json:"keys"`
	Count int      `json:"count"`
}

type LocateInput struct {
	Key string `json:"key" jsonschema:"required,description=Citation key of the entry"`
}

type LocateOutput struct {
	Files []LocatedFile `json:"files"`
}

type LocatedFile struct {
	Description  string `json:"description,omitempty"`
	Path         string `json:"path"`
	Type         string `json:"type,omitempty"`
	ResolvedPath string `json:"resolvedPath,omitempty"`
	Found        bool   `json:"found"`
}

// Tool handlers

func (s *Server) handleDirs(_ context.Context, _ *mcp.CallToolRequest, input DirsInput) (*mcp.CallToolResult, DirsOutput, error) {
	field := bib.FieldFile
	if input.Field != nil && *input.Field != "" {
		field = strings.ToLower(*input.Field)
	}

	dirs := s.libCtx.FileDirectories(field, s.prefs)
	output := DirsOutput{Directories: dirs}
	if first, ok := bib.FirstExistingDirectory(dirs); ok {
		output.FirstExisting = first
	}
	return nil, output, nil
}

func (s *Server) handleGroups(_ context.Context, _ *mcp.CallToolRequest, input GroupsInput) (*mcp.CallToolResult, GroupsOutput, error) {
	filter := ""
	if input.Filter != nil {
		filter = *input.Filter
	}

	loop := dispatch.NewLoop()
	defer loop.Close()

	tree := groupview.NewTree(s.libCtx, loop, nil)
	defer tree.Close()
	tree.Wait()

	var infos []GroupInfo
	tree.View(func(root *groupview.Node) {
		collectGroups(root, filter, &infos)
	})

	return nil, GroupsOutput{Groups: infos}, nil
}

func collectGroups(n *groupview.Node, filter string, out *[]GroupInfo) {
	if n.MatchedBy(filter) {
		*out = append(*out, GroupInfo{
			Path:        n.Path(),
			Name:        n.DisplayName(),
			Hits:        n.Hits(),
			Description: n.Description(),
		})
	}
	for _, child := range n.Children() {
		collectGroups(child, filter, out)
	}
}

func (s *Server) handleSearch(_ context.Context, _ *mcp.CallToolRequest, input SearchInput) (*mcp.CallToolResult, SearchOutput, error) {
	if input.Field == "" || input.Word == "" {
		return nil, SearchOutput{}, errors.New("field and word are required")
	}

	predicate := groups.NewWordGroup("search", strings.ToLower(input.Field), input.Word)

	keys := []string{}
	for _, e := range s.libCtx.Database().Entries() {
		if predicate.Matches(e) {
			keys = append(keys, e.CitationKey())
		}
	}

	return nil, SearchOutput{Keys: keys, Count: len(keys)}, nil
}

func (s *Server) handleLocate(_ context.Context, _ *mcp.CallToolRequest, input LocateInput) (*mcp.CallToolResult, LocateOutput, error) {
	e, ok := s.libCtx.Database().EntryByKey(input.Key)
	if !ok {
		return nil, LocateOutput{}, fmt.Errorf("entry not found: %s", input.Key)
	}

	dirs := s.libCtx.FileDirectories(bib.FieldFile, s.prefs)

	files := []LocatedFile{}
	value, _ := e.Field(bib.FieldFile)
	for _, link := range filelink.Parse(value) {
		located := LocatedFile{
			Description: link.Description,
			Path:        link.Path,
			Type:        link.Type,
		}
		if resolved, found := filelink.Locate(link, dirs); found {
			located.ResolvedPath = resolved
			located.Found = true
		}
		files = append(files, located)
	}

	return nil, LocateOutput{Files: files}, nil
}
