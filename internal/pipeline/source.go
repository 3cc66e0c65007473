package pipeline

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/minio/minio-go/v7"
)

// Source 是语料的来源：列出合格的文件并读取其内容。
type Source interface {
	// List 返回按名字排序的合格文件名。
	List(ctx context.Context) ([]string, error)
	Read(ctx context.Context, name string) ([]byte, error)
	// Location 返回写入元数据 source_path 的完整位置。
	Location(name string) string
}

func hasExtension(name string, exts []string) bool {
	if len(exts) == 0 {
		return true
	}
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range exts {
		if strings.ToLower(e) == ext {
			return true
		}
	}
	return false
}

// LocalSource 从本地目录（不递归）读取语料。
type LocalSource struct {
	Dir        string
	Extensions []string
}

func (s *LocalSource) List(_ context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.Dir)
	if err != nil {
		return nil, fmt.Errorf("读取语料目录 %s 失败: %w", s.Dir, err)
	}
	var names []string
	for _, e := range entries {
		if e.Type().IsRegular() && hasExtension(e.Name(), s.Extensions) {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

func (s *LocalSource) Read(_ context.Context, name string) ([]byte, error) {
	return os.ReadFile(s.Location(name))
}

func (s *LocalSource) Location(name string) string {
	return filepath.Join(s.Dir, name)
}

// MinIOSource 从对象存储桶的某个前缀下读取语料。
type MinIOSource struct {
	Client     *minio.Client
	Bucket     string
	Prefix     string
	Extensions []string
}

func (s *MinIOSource) List(ctx context.Context) ([]string, error) {
	var names []string
	for obj := range s.Client.ListObjects(ctx, s.Bucket, minio.ListObjectsOptions{Prefix: s.Prefix, Recursive: true}) {
		if obj.Err != nil {
			return nil, fmt.Errorf("列出存储桶 %s 中的对象失败: %w", s.Bucket, obj.Err)
		}
		if strings.HasSuffix(obj.Key, "/") || !hasExtension(obj.Key, s.Extensions) {
			continue
		}
		names = append(names, obj.Key)
	}
	sort.Strings(names)
	return names, nil
}

func (s *MinIOSource) Read(ctx context.Context, name string) ([]byte, error) {
	object, err := s.Client.GetObject(ctx, s.Bucket, name, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("从 MinIO 下载文件失败: %w", err)
	}
	defer object.Close()
	return io.ReadAll(object)
}

func (s *MinIOSource) Location(name string) string {
	return "minio://" + s.Bucket + "/" + name
}
