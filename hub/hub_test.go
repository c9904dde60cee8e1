package hub_test

import (
	"time"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/horus-robotics/horus/cmn/cos"
	"github.com/horus-robotics/horus/hub"
)

type telemetry struct {
	Seq   int64
	Value float64
}

func freshTopic() string { return "telemetry-" + cos.GenUUID() }

var _ = Describe("Hub", func() {
	It("delivers one producer's publishes to one subscriber in order", func() {
		h, err := hub.Open[telemetry](freshTopic())
		Expect(err).NotTo(HaveOccurred())
		defer h.Close()

		sub, err := h.Subscribe()
		Expect(err).NotTo(HaveOccurred())
		defer sub.Close()

		for i := int64(0); i < 6; i++ {
			Expect(h.Publish(telemetry{Seq: i})).To(Succeed())
		}
		for i := int64(0); i < 6; i++ {
			v, err := sub.Recv()
			Expect(err).NotTo(HaveOccurred())
			Expect(v.Seq).To(Equal(i))
		}
	})

	It("delivers every message to every subscriber exactly once, no duplicates", func() {
		h, err := hub.Open[telemetry](freshTopic())
		Expect(err).NotTo(HaveOccurred())
		defer h.Close()

		subA, _ := h.Subscribe()
		subB, _ := h.Subscribe()
		defer subA.Close()
		defer subB.Close()

		for i := int64(0); i < 4; i++ {
			Expect(h.Publish(telemetry{Seq: i})).To(Succeed())
		}

		seenA := map[int64]int{}
		seenB := map[int64]int{}
		for i := 0; i < 4; i++ {
			va, err := subA.Recv()
			Expect(err).NotTo(HaveOccurred())
			seenA[va.Seq]++
			vb, err := subB.Recv()
			Expect(err).NotTo(HaveOccurred())
			seenB[vb.Seq]++
		}
		for i := int64(0); i < 4; i++ {
			Expect(seenA[i]).To(Equal(1))
			Expect(seenB[i]).To(Equal(1))
		}
	})

	It("reports Lagged with the skipped count instead of blocking the writer", func() {
		h, err := hub.Open[telemetry](freshTopic())
		Expect(err).NotTo(HaveOccurred())
		defer h.Close()

		sub, err := h.Subscribe()
		Expect(err).NotTo(HaveOccurred())
		defer sub.Close()

		for i := 0; i < 1024+37; i++ {
			Expect(h.Publish(telemetry{Seq: int64(i)})).To(Succeed())
		}
		_, err = sub.Recv()
		skipped, ok := cos.AsErrLagged(err)
		Expect(ok).To(BeTrue())
		Expect(skipped).To(Equal(int64(37)))
	})

	It("rejects a later join that disagrees on capacity", func() {
		topic := freshTopic()
		h, err := hub.OpenWithCapacity[telemetry](topic, 8)
		Expect(err).NotTo(HaveOccurred())
		defer h.Close()

		_, err = hub.OpenWithCapacity[telemetry](topic, 16)
		Expect(err).To(HaveOccurred())
	})

	It("RecvWait returns a value published while waiting", func() {
		h, err := hub.Open[telemetry](freshTopic())
		Expect(err).NotTo(HaveOccurred())
		defer h.Close()

		sub, err := h.Subscribe()
		Expect(err).NotTo(HaveOccurred())
		defer sub.Close()

		go func() {
			time.Sleep(5 * time.Millisecond)
			h.Publish(telemetry{Seq: 11})
		}()
		v, err := sub.RecvWait(200 * time.Millisecond)
		Expect(err).NotTo(HaveOccurred())
		Expect(v.Seq).To(Equal(int64(11)))
	})

	It("never replays messages published before a late subscriber joins", func() {
		h, err := hub.Open[telemetry](freshTopic())
		Expect(err).NotTo(HaveOccurred())
		defer h.Close()

		Expect(h.Publish(telemetry{Seq: 0})).To(Succeed())
		Expect(h.Publish(telemetry{Seq: 1})).To(Succeed())

		late, err := h.Subscribe()
		Expect(err).NotTo(HaveOccurred())
		defer late.Close()

		_, err = late.Recv()
		Expect(cos.IsErrEmpty(err)).To(BeTrue())

		Expect(h.Publish(telemetry{Seq: 2})).To(Succeed())
		v, err := late.Recv()
		Expect(err).NotTo(HaveOccurred())
		Expect(v.Seq).To(Equal(int64(2)))
	})
})
