package pipeline

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestLoadTasks 测试输入文件解析
func TestLoadTasks(t *testing.T) {
	dir := t.TempDir()

	t.Run("标准记录", func(t *testing.T) {
		path := filepath.Join(dir, "600519.json")
		content := `[{"_id": "n1", "stock_code": "600519", "title": "标题", "content": "正文", "pub_time": "2024/01/02 09:30"}]`
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))

		tasks, err := LoadTasks(path)
		require.NoError(t, err)
		require.Len(t, tasks, 1)
		assert.Equal(t, "n1", tasks[0].ID)
		assert.Equal(t, "贵州茅台", tasks[0].StockName, "已知代码应自动补齐股票名称")
	})

	t.Run("id 主键兼容", func(t *testing.T) {
		path := filepath.Join(dir, "000001.json")
		content := `[{"id": "n2", "stock_code": "000001", "title": "标题", "content": "正文"}]`
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))

		tasks, err := LoadTasks(path)
		require.NoError(t, err)
		require.Len(t, tasks, 1)
		assert.Equal(t, "n2", tasks[0].ID)
	})

	t.Run("保留已有股票名称", func(t *testing.T) {
		path := filepath.Join(dir, "600036.json")
		content := `[{"_id": "n3", "stock_code": "600036", "stock_name": "自定义名称", "title": "标题", "content": "正文"}]`
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))

		tasks, err := LoadTasks(path)
		require.NoError(t, err)
		assert.Equal(t, "自定义名称", tasks[0].StockName)
	})

	t.Run("空文件", func(t *testing.T) {
		path := filepath.Join(dir, "300750.json")
		require.NoError(t, os.WriteFile(path, []byte("   \n"), 0644))

		_, err := LoadTasks(path)
		assert.ErrorIs(t, err, ErrEmptyFile)
	})

	t.Run("非法 JSON", func(t *testing.T) {
		path := filepath.Join(dir, "601318.json")
		require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))

		_, err := LoadTasks(path)
		assert.Error(t, err)
	})

	t.Run("文件不存在", func(t *testing.T) {
		_, err := LoadTasks(filepath.Join(dir, "999999.json"))
		assert.Error(t, err)
	})
}
