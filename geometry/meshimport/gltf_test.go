package meshimport

import "testing"

func TestLoadTriangleMeshesFromGLTFMissingFile(t *testing.T) {
	if _, err := LoadTriangleMeshesFromGLTF("testdata/does-not-exist.gltf"); err == nil {
		t.Fatal("expected an error opening a nonexistent glTF file")
	}
}
