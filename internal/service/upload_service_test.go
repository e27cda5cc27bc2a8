package service

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"earthhome/internal/featureflags"
	"earthhome/internal/imaging"
	"earthhome/internal/models"
	"earthhome/internal/storage"
	"earthhome/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var uploadKeyPattern = regexp.MustCompile(`^properties/sea-breeze-villa/[0-9a-f-]{36}-front-door.png$`)

func TestUpload_PropertyImages(t *testing.T) {
	store := testutil.NewMemoryStore()
	svc := NewUploadService(store, featureflags.NewManager("image_thumbnails=off"))
	actor := makeUser("agent-1", models.RoleUser)

	files, err := svc.Upload(context.Background(), actor, PropertyImagesRule, "Sea Breeze  Villa", []UploadFile{
		{Name: "Front Door.PNG", DeclaredType: "image/png", Content: testutil.PNG(t, 20, 10)},
	})
	require.NoError(t, err)
	require.Len(t, files, 1)

	f := files[0]
	assert.Regexp(t, uploadKeyPattern, f.Key)
	assert.Equal(t, "https://media.test/"+f.Key, f.URL)
	assert.Equal(t, "image/png", f.ContentType)
	assert.Equal(t, "Front Door.PNG", f.Name)
	assert.Empty(t, f.ThumbnailURL)
	assert.Equal(t, []string{f.Key}, store.Keys())
}

func TestUpload_ThumbnailsBehindFlag(t *testing.T) {
	store := testutil.NewMemoryStore()
	svc := NewUploadService(store, featureflags.NewManager("image_thumbnails=on"))

	files, err := svc.Upload(context.Background(), makeUser("agent-1", models.RoleUser), PropertyImagesRule, "", []UploadFile{
		{Name: "wide.png", Content: testutil.PNG(t, 1200, 600)},
	})
	require.NoError(t, err)
	require.Len(t, files, 1)

	thumbKey := imaging.ThumbnailKey(files[0].Key)
	assert.True(t, strings.HasPrefix(files[0].Key, "properties/unknown-property/"))
	assert.Equal(t, "https://media.test/"+thumbKey, files[0].ThumbnailURL)
	assert.Equal(t, "image/webp", store.Types[thumbKey])
}

func TestUpload_PropertyDocuments(t *testing.T) {
	store := testutil.NewMemoryStore()
	svc := NewUploadService(store, nil)

	files, err := svc.Upload(context.Background(), makeUser("agent-1", models.RoleUser), PropertyDocumentsRule, "Sea Breeze Villa", []UploadFile{
		{Name: "Deed.pdf", DeclaredType: "application/pdf", Content: testutil.PDF()},
		{Name: "contract.docx", DeclaredType: ContentTypeDocx, Content: []byte("PK\x03\x04word/document.xml")},
	})
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.True(t, strings.HasPrefix(files[0].Key, "documents/sea-breeze-villa/"))
	assert.True(t, strings.HasSuffix(files[0].Key, "-deed.pdf"))
	assert.Equal(t, ContentTypePDF, files[0].ContentType)
	assert.Equal(t, ContentTypeDocx, files[1].ContentType)
}

func TestUpload_Limits(t *testing.T) {
	png := testutil.PNG(t, 4, 4)
	many := func(n int, content []byte) []UploadFile {
		out := make([]UploadFile, n)
		for i := range out {
			out[i] = UploadFile{Name: "f.png", Content: content}
		}
		return out
	}

	tests := []struct {
		name    string
		actor   *models.User
		rule    UploadRule
		files   []UploadFile
		wantMsg string
	}{
		{"anonymous", nil, PropertyImagesRule, many(1, png), "You must be logged in to upload files"},
		{"no files", makeUser("u", models.RoleUser), PropertyImagesRule, nil, "No files provided"},
		{"too many images", makeUser("u", models.RoleUser), PropertyImagesRule, many(11, png), "Too many files. Maximum is 10"},
		{"too many documents", makeUser("u", models.RoleUser), PropertyDocumentsRule, many(6, testutil.PDF()), "Too many files. Maximum is 5"},
		{"oversized document", makeUser("u", models.RoleUser), PropertyDocumentsRule,
			[]UploadFile{{Name: "big.pdf", Content: append(testutil.PDF(), make([]byte, 10*1024*1024)...)}},
			"File big.pdf exceeds the maximum size of 10MB"},
		{"pdf on image route", makeUser("u", models.RoleUser), PropertyImagesRule,
			[]UploadFile{{Name: "x.png", DeclaredType: "image/png", Content: testutil.PDF()}},
			"File x.png has an unsupported type"},
		{"image on document route", makeUser("u", models.RoleUser), PropertyDocumentsRule,
			[]UploadFile{{Name: "x.pdf", DeclaredType: "application/pdf", Content: png}},
			"File x.pdf has an unsupported type"},
		{"zip posing as docx", makeUser("u", models.RoleUser), PropertyDocumentsRule,
			[]UploadFile{{Name: "x.zip", DeclaredType: "application/zip", Content: []byte("PK\x03\x04data")}},
			"File x.zip has an unsupported type"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := testutil.NewMemoryStore()
			svc := NewUploadService(store, nil)
			_, err := svc.Upload(context.Background(), tt.actor, tt.rule, "Listing", tt.files)
			require.Error(t, err)
			assert.Equal(t, tt.wantMsg, err.Error())
			assert.Empty(t, store.Keys(), "nothing is stored when validation fails")
		})
	}
}

func TestUpload_StoreFailure(t *testing.T) {
	store := testutil.NewMemoryStore()
	store.PutErr = errors.New("bucket unavailable")
	svc := NewUploadService(store, nil)

	_, err := svc.Upload(context.Background(), makeUser("u", models.RoleUser), PropertyImagesRule, "Listing", []UploadFile{
		{Name: "a.png", Content: testutil.PNG(t, 2, 2)},
	})
	require.Error(t, err)
	assert.Equal(t, models.CodeInternal, models.ErrorCode(err))
}

func TestUpload_DiskStoreAcceptsDottedNames(t *testing.T) {
	store, err := storage.NewDiskStore(t.TempDir(), "/uploads")
	require.NoError(t, err)
	svc := NewUploadService(store, nil)

	tests := []string{"beach..house.png", "...png", "../../escape.png"}
	for _, name := range tests {
		t.Run(name, func(t *testing.T) {
			files, err := svc.Upload(context.Background(), makeUser("agent-1", models.RoleUser), PropertyImagesRule, "Sea Breeze", []UploadFile{
				{Name: name, Content: testutil.PNG(t, 4, 4)},
			})
			require.NoError(t, err)
			require.Len(t, files, 1)

			key := files[0].Key
			assert.True(t, strings.HasPrefix(key, "properties/sea-breeze/"), key)
			assert.NotContains(t, key, "..")
			_, err = os.Stat(filepath.Join(store.Root(), filepath.FromSlash(key)))
			assert.NoError(t, err)
		})
	}
}
