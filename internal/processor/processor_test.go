// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.

package processor

import (
	"context"
	"errors"
	"fmt"
	"io/fs"

	"jsoncfg/tool/internal/jsonc"
	"jsoncfg/tool/internal/processor/mocks"

	"github.com/cespare/xxhash/v2"
	"github.com/golang/mock/gomock"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Processor", func() {

	const (
		commented = "{\n  // port\n  \"port\": 80,\n}"
		stripped  = "{\n         \n  \"port\": 80,\n}"
		clean     = `{"port": 80}`
		cachePath = "/repo/.jsoncfg-cache.json"
	)

	var (
		mockCtrl  *gomock.Controller
		mockStore *mocks.MockFileStore
		ctx       context.Context
	)

	cacheFile := func(opts jsonc.Options, path string, content string) []byte {
		return []byte(fmt.Sprintf(`{"options": %q, "entries": {%q: %d}}`, optionsKey(opts), path, xxhash.Sum64([]byte(content))))
	}

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		mockStore = mocks.NewMockFileStore(mockCtrl)
		ctx = context.Background()
	})

	Context("Strip without writing", func() {
		It("Should return the stripped output of every file in order", func() {
			mockStore.EXPECT().ReadFile("/repo/a.json").Return([]byte(commented), nil)
			mockStore.EXPECT().ReadFile("/repo/b.json").Return([]byte(clean), nil)

			p := NewProcessor(Config{Options: jsonc.DefaultOptions()}, mockStore)
			summary, err := p.ProcessFiles(ctx, []string{"/repo/a.json", "/repo/b.json"})

			Expect(err).ShouldNot(HaveOccurred())
			Expect(summary.Processed).Should(Equal(2))
			Expect(summary.Changed).Should(Equal(1))
			Expect(summary.Skipped).Should(Equal(0))
			Expect(summary.Results).Should(HaveLen(2))
			Expect(summary.Results[0].Path).Should(Equal("/repo/a.json"))
			Expect(string(summary.Results[0].Output)).Should(Equal(stripped))
			Expect(summary.Results[0].Changed).Should(BeTrue())
			Expect(string(summary.Results[1].Output)).Should(Equal(clean))
			Expect(summary.Results[1].Changed).Should(BeFalse())
		})

		It("Should honor the stripping options", func() {
			mockStore.EXPECT().ReadFile("/repo/a.json").Return([]byte(commented), nil)

			p := NewProcessor(Config{Options: jsonc.Options{StripTrailingCommas: true}}, mockStore)
			summary, err := p.ProcessFiles(ctx, []string{"/repo/a.json"})

			Expect(err).ShouldNot(HaveOccurred())
			Expect(string(summary.Results[0].Output)).Should(Equal("{\n  \n  \"port\": 80\n}"))
		})
	})

	Context("Strip in place", func() {
		It("Should only write files whose content changed", func() {
			mockStore.EXPECT().ReadFile("/repo/a.json").Return([]byte(commented), nil)
			mockStore.EXPECT().ReadFile("/repo/b.json").Return([]byte(clean), nil)
			mockStore.EXPECT().WriteFile("/repo/a.json", []byte(stripped)).Return(nil).Times(1)

			p := NewProcessor(Config{Options: jsonc.DefaultOptions(), Write: true, Concurrency: 1}, mockStore)
			summary, err := p.ProcessFiles(ctx, []string{"/repo/a.json", "/repo/b.json"})

			Expect(err).ShouldNot(HaveOccurred())
			Expect(summary.Changed).Should(Equal(1))
		})

		It("Should aggregate failures and keep processing other files", func() {
			mockStore.EXPECT().ReadFile("/repo/a.json").Return(nil, fs.ErrPermission)
			mockStore.EXPECT().ReadFile("/repo/b.json").Return([]byte(commented), nil)
			mockStore.EXPECT().WriteFile("/repo/b.json", gomock.Any()).Return(errors.New("disk full"))
			mockStore.EXPECT().ReadFile("/repo/c.json").Return([]byte(clean), nil)

			p := NewProcessor(Config{Options: jsonc.DefaultOptions(), Write: true}, mockStore)
			summary, err := p.ProcessFiles(ctx, []string{"/repo/a.json", "/repo/b.json", "/repo/c.json"})

			Expect(err).Should(HaveOccurred())
			Expect(errors.Is(err, fs.ErrPermission)).Should(BeTrue())
			Expect(err.Error()).Should(ContainSubstring("/repo/a.json"))
			Expect(err.Error()).Should(ContainSubstring("disk full"))
			Expect(summary.Results).Should(HaveLen(1))
			Expect(summary.Results[0].Path).Should(Equal("/repo/c.json"))
		})
	})

	Context("Content hash cache", func() {
		It("Should skip files unchanged since the last run", func() {
			mockStore.EXPECT().ReadFile(cachePath).Return(cacheFile(jsonc.DefaultOptions(), "/repo/a.json", clean), nil)
			mockStore.EXPECT().ReadFile("/repo/a.json").Return([]byte(clean), nil)
			mockStore.EXPECT().ReadFile("/repo/b.json").Return([]byte(commented), nil)
			mockStore.EXPECT().WriteFile("/repo/b.json", []byte(stripped)).Return(nil)
			mockStore.EXPECT().WriteFile(cachePath, gomock.Any()).DoAndReturn(func(_ string, data []byte) error {
				cache := NewCache(jsonc.Options{})
				Expect(jsonc.Unmarshal(data, cache, nil)).Should(Succeed())
				Expect(cache.Options).Should(Equal(optionsKey(jsonc.DefaultOptions())))
				Expect(cache.Entries).Should(HaveKeyWithValue("/repo/b.json", xxhash.Sum64([]byte(stripped))))
				Expect(cache.Entries).Should(HaveKey("/repo/a.json"))
				return nil
			})

			p := NewProcessor(Config{Options: jsonc.DefaultOptions(), Write: true, CachePath: cachePath}, mockStore)
			summary, err := p.ProcessFiles(ctx, []string{"/repo/a.json", "/repo/b.json"})

			Expect(err).ShouldNot(HaveOccurred())
			Expect(summary.Skipped).Should(Equal(1))
			Expect(summary.Processed).Should(Equal(1))
			Expect(summary.Results[0].Skipped).Should(BeTrue())
		})

		It("Should reprocess cached files when forced", func() {
			mockStore.EXPECT().ReadFile(cachePath).Return(cacheFile(jsonc.DefaultOptions(), "/repo/a.json", clean), nil)
			mockStore.EXPECT().ReadFile("/repo/a.json").Return([]byte(clean), nil)
			mockStore.EXPECT().WriteFile(cachePath, gomock.Any()).Return(nil)

			p := NewProcessor(Config{Options: jsonc.DefaultOptions(), Write: true, CachePath: cachePath, Force: true}, mockStore)
			summary, err := p.ProcessFiles(ctx, []string{"/repo/a.json"})

			Expect(err).ShouldNot(HaveOccurred())
			Expect(summary.Skipped).Should(Equal(0))
			Expect(summary.Processed).Should(Equal(1))
		})

		It("Should reprocess cached files when the options changed", func() {
			withComma := "{\"port\": 80,}"
			opts := jsonc.Options{PreserveWhitespace: true, StripTrailingCommas: true}
			mockStore.EXPECT().ReadFile(cachePath).Return(cacheFile(jsonc.DefaultOptions(), "/repo/a.json", withComma), nil)
			mockStore.EXPECT().ReadFile("/repo/a.json").Return([]byte(withComma), nil)
			mockStore.EXPECT().WriteFile("/repo/a.json", []byte("{\"port\": 80 }")).Return(nil)
			mockStore.EXPECT().WriteFile(cachePath, gomock.Any()).DoAndReturn(func(_ string, data []byte) error {
				cache := NewCache(jsonc.Options{})
				Expect(jsonc.Unmarshal(data, cache, nil)).Should(Succeed())
				Expect(cache.Options).Should(Equal(optionsKey(opts)))
				return nil
			})

			p := NewProcessor(Config{Options: opts, Write: true, CachePath: cachePath}, mockStore)
			summary, err := p.ProcessFiles(ctx, []string{"/repo/a.json"})

			Expect(err).ShouldNot(HaveOccurred())
			Expect(summary.Skipped).Should(Equal(0))
			Expect(summary.Changed).Should(Equal(1))
		})

		It("Should start from an empty cache when the cache file is missing", func() {
			mockStore.EXPECT().ReadFile(cachePath).Return(nil, fs.ErrNotExist)
			mockStore.EXPECT().ReadFile("/repo/a.json").Return([]byte(clean), nil)
			mockStore.EXPECT().WriteFile(cachePath, gomock.Any()).Return(errors.New("read-only"))

			p := NewProcessor(Config{Options: jsonc.DefaultOptions(), Write: true, CachePath: cachePath}, mockStore)
			summary, err := p.ProcessFiles(ctx, []string{"/repo/a.json"})

			// failing to save the cache is only a warning
			Expect(err).ShouldNot(HaveOccurred())
			Expect(summary.Processed).Should(Equal(1))
		})

		It("Should fail when the cache file is corrupt", func() {
			mockStore.EXPECT().ReadFile(cachePath).Return([]byte("not json"), nil)

			p := NewProcessor(Config{Write: true, CachePath: cachePath}, mockStore)
			_, err := p.ProcessFiles(ctx, []string{"/repo/a.json"})

			Expect(err).Should(HaveOccurred())
		})

		It("Should ignore the cache when not writing", func() {
			mockStore.EXPECT().ReadFile("/repo/a.json").Return([]byte(clean), nil)

			p := NewProcessor(Config{Options: jsonc.DefaultOptions(), CachePath: cachePath}, mockStore)
			_, err := p.ProcessFiles(ctx, []string{"/repo/a.json"})

			Expect(err).ShouldNot(HaveOccurred())
		})
	})

	Context("Cancellation", func() {
		It("Should not read any file once the context is cancelled", func() {
			cancelled, cancel := context.WithCancel(ctx)
			cancel()

			p := NewProcessor(Config{}, mockStore)
			_, err := p.ProcessFiles(cancelled, []string{"/repo/a.json", "/repo/b.json"})

			Expect(errors.Is(err, context.Canceled)).Should(BeTrue())
		})
	})
})
