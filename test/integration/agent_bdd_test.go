//go:build integration

package integration

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/content_mon/internal/daemon"
	"github.com/eliteGoblin/focusd/content_mon/internal/domain"
	"github.com/eliteGoblin/focusd/content_mon/internal/infra"
	"github.com/eliteGoblin/focusd/content_mon/test/fixtures"
)

var _ = Describe("Agent", func() {
	var (
		tmpDir     string
		binaryPath string
		clock      *fixtures.FakeClock
		describer  *fixtures.FakeDescriber
		probe      *fixtures.FakeProbe
		alerts     *fixtures.RecordingAlerts
		device     *fixtures.RecordingDevice
		counter    *infra.FileCounterStore
		journal    *infra.JournalNotifier
		watcher    *infra.UninstallWatcher
		input      *infra.ReaderInputSource
		inputPipe  *io.PipeWriter
		agent      *daemon.Agent
		cancel     context.CancelFunc
	)

	journalKinds := func() []domain.DetectionKind {
		dets, err := infra.ReadJournal(journal.Path(), 0)
		Expect(err).NotTo(HaveOccurred())
		kinds := make([]domain.DetectionKind, 0, len(dets))
		for _, d := range dets {
			kinds = append(kinds, d.Kind)
		}
		return kinds
	}

	count := func() int64 {
		n, err := counter.Count(context.Background())
		Expect(err).NotTo(HaveOccurred())
		return n
	}

	config := func(strict bool) domain.MonitoringConfig {
		return domain.MonitoringConfig{
			ScreenInterval:  time.Minute,
			NetworkInterval: time.Minute,
			KeyboardEnabled: true,
			StrictMode:      strict,
			GuardianAddress: "parent@example.com",
		}
	}

	BeforeEach(func() {
		var err error
		tmpDir, err = os.MkdirTemp("", "contentmon-integration-*")
		Expect(err).NotTo(HaveOccurred())

		binaryPath = filepath.Join(tmpDir, "contentmon")
		Expect(os.WriteFile(binaryPath, []byte("fake binary"), 0755)).To(Succeed())

		logger := zap.NewNop()
		clock = fixtures.NewFakeClock(time.Date(2025, 3, 4, 10, 0, 0, 0, time.UTC))
		describer = &fixtures.FakeDescriber{Description: "A code editor with a Go file open"}
		probe = &fixtures.FakeProbe{}
		alerts = &fixtures.RecordingAlerts{}
		device = &fixtures.RecordingDevice{Clock: clock}
		counter = infra.NewFileCounterStore(tmpDir)
		journal, err = infra.NewJournalNotifier(filepath.Join(tmpDir, infra.JournalFileName))
		Expect(err).NotTo(HaveOccurred())
		watcher = infra.NewUninstallWatcher(binaryPath, 10*time.Second, infra.OSFileChecker{}, clock, logger)

		var reader *io.PipeReader
		reader, inputPipe = io.Pipe()
		input = infra.NewLineSource(reader, logger)

		host := daemon.Host{
			Capturer:   &fixtures.FakeCapturer{},
			Describer:  describer,
			Probe:      probe,
			Input:      input,
			Uninstall:  watcher,
			Counter:    counter,
			Alerts:     alerts,
			Device:     device,
			UI:         infra.NewMultiNotifier(journal),
			DeviceInfo: fixtures.StaticDeviceInfo{Hostname: "kids-laptop", Platform: "linux"},
			State:      &fixtures.MemoryState{},
			Clock:      clock,
			Closers:    []interface{ Close() error }{counter, journal},
		}
		agent = daemon.NewAgent(host, daemon.AgentOptions{Version: "integration"}, logger)

		var ctx context.Context
		ctx, cancel = context.WithCancel(context.Background())
		go func() { _ = watcher.Run(ctx) }()
		DeferCleanup(func() {
			agent.Stop()
			cancel()
			_ = inputPipe.Close()
			Expect(host.Close()).To(Succeed())
			os.RemoveAll(tmpDir)
		})
	})

	Context("when the screen shows explicit content", func() {
		It("should count, alert and journal the detection", func() {
			Expect(agent.Start(context.Background(), config(false))).To(Succeed())
			// screen, network, heartbeat and the uninstall watcher
			Expect(clock.WaitForTickers(4, 2*time.Second)).To(BeTrue())

			describer.SetDescription("A webpage showing explicit porn video thumbnails")
			clock.Advance(time.Minute)

			Eventually(journalKinds).WithTimeout(2 * time.Second).Should(ConsistOf(domain.KindScreen))
			Expect(count()).To(Equal(int64(1)))
			Expect(alerts.Sent()).To(HaveLen(1))
			Expect(alerts.Sent()[0].To).To(Equal("parent@example.com"))
			Expect(alerts.Sent()[0].Subject).To(ContainSubstring("screen"))
			Expect(device.Shutdowns()).To(Equal(0))
		})
	})

	Context("when a search term is entered", func() {
		It("should report a keyboard detection with the field confidence", func() {
			Expect(agent.Start(context.Background(), config(false))).To(Succeed())

			go func() { _, _ = io.WriteString(inputPipe, "busco porno gratis\n") }()

			Eventually(journalKinds).WithTimeout(2 * time.Second).Should(ConsistOf(domain.KindKeyboard))
			dets, err := infra.ReadJournal(journal.Path(), 1)
			Expect(err).NotTo(HaveOccurred())
			Expect(dets[0].Confidence).To(Equal(0.9))
			Expect(dets[0].Content).To(Equal("busco porno gratis"))
			Expect(count()).To(Equal(int64(1)))
		})

		It("should end the input stream when the writer closes", func() {
			Expect(agent.Start(context.Background(), config(false))).To(Succeed())

			Expect(inputPipe.Close()).To(Succeed())

			Eventually(input.Done()).WithTimeout(2 * time.Second).Should(BeClosed())
			Expect(journalKinds()).To(BeEmpty())
		})
	})

	Context("when the installed binary is removed", func() {
		It("should report a single uninstall attempt", func() {
			Expect(agent.Start(context.Background(), config(false))).To(Succeed())
			Expect(clock.WaitForTickers(4, 2*time.Second)).To(BeTrue())

			Expect(os.Remove(binaryPath)).To(Succeed())
			clock.Advance(10 * time.Second)

			Eventually(journalKinds).WithTimeout(2 * time.Second).Should(ConsistOf(domain.KindUninstall))
			dets, err := infra.ReadJournal(journal.Path(), 1)
			Expect(err).NotTo(HaveOccurred())
			Expect(dets[0].Confidence).To(Equal(1.0))
			Expect(dets[0].Reason).To(Equal("Attempted to uninstall Ángel Guardián"))

			clock.Advance(10 * time.Second)
			Consistently(journalKinds).WithDuration(100 * time.Millisecond).Should(HaveLen(1))
		})
	})

	Context("when the device stays offline for over a day", func() {
		It("should report a network detection", func() {
			cfg := config(false)
			cfg.ScreenInterval = 48 * time.Hour
			cfg.NetworkInterval = time.Hour
			Expect(agent.Start(context.Background(), cfg)).To(Succeed())
			Expect(clock.WaitForTickers(4, 2*time.Second)).To(BeTrue())

			probe.SetOnline(false)
			clock.Advance(25 * time.Hour)

			Eventually(journalKinds).WithTimeout(2 * time.Second).Should(ContainElement(domain.KindNetwork))
			Expect(count()).To(BeNumerically(">=", 1))
			Expect(alerts.Sent()[0].Body).To(ContainSubstring("kids-laptop"))
		})
	})

	Context("in strict mode", func() {
		It("should shut down five seconds after detection even if stopped", func() {
			Expect(agent.Start(context.Background(), config(true))).To(Succeed())
			Expect(clock.WaitForTickers(4, 2*time.Second)).To(BeTrue())

			describer.SetDescription("A webpage showing explicit porn video thumbnails")
			clock.Advance(time.Minute)

			Eventually(func() bool {
				return agent.PendingShutdowns() == 1 && clock.PendingTimers() == 1
			}).WithTimeout(2 * time.Second).Should(BeTrue())
			detectedAt := clock.Now()
			Expect(alerts.Sent()).To(HaveLen(1))

			clock.Advance(time.Second)
			agent.Stop()
			Expect(agent.Running()).To(BeFalse())

			clock.Advance(3 * time.Second)
			Expect(device.Shutdowns()).To(Equal(0))

			clock.Advance(time.Second)
			Expect(device.Shutdowns()).To(Equal(1))
			Expect(device.ShutdownTimes()[0]).To(Equal(detectedAt.Add(domain.ShutdownDelay)))

			ctx, drainCancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer drainCancel()
			Expect(agent.Drain(ctx)).To(Succeed())
		})
	})

	Context("when the counter file already holds attempts", func() {
		It("should continue from the stored count", func() {
			_, err := counter.Increment(context.Background(), "earlier-1")
			Expect(err).NotTo(HaveOccurred())
			_, err = counter.Increment(context.Background(), "earlier-2")
			Expect(err).NotTo(HaveOccurred())

			Expect(agent.Start(context.Background(), config(false))).To(Succeed())
			Expect(clock.WaitForTickers(4, 2*time.Second)).To(BeTrue())
			Expect(os.Remove(binaryPath)).To(Succeed())
			clock.Advance(10 * time.Second)

			Eventually(count).WithTimeout(2 * time.Second).Should(Equal(int64(3)))
		})
	})
})
