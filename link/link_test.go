package link_test

import (
	"testing"
	"time"

	"github.com/horus-robotics/horus/cmn/cos"
	"github.com/horus-robotics/horus/link"
)

type imuSample struct {
	Seq       int64
	AccelX    float64
	AccelY    float64
	AccelZ    float64
}

func TestSendRecvFIFO(t *testing.T) {
	topic := "imu-" + cos.GenUUID()
	p, err := link.NewProducer[imuSample](topic)
	if err != nil {
		t.Fatalf("NewProducer: %v", err)
	}
	defer p.Close()
	c, err := link.NewConsumer[imuSample](topic)
	if err != nil {
		t.Fatalf("NewConsumer: %v", err)
	}
	defer c.Close()

	for i := int64(0); i < 10; i++ {
		if err := p.Send(imuSample{Seq: i, AccelX: float64(i)}); err != nil {
			t.Fatalf("Send(%d): %v", i, err)
		}
	}
	for i := int64(0); i < 10; i++ {
		v, err := c.Recv()
		if err != nil {
			t.Fatalf("Recv(%d): %v", i, err)
		}
		if v.Seq != i {
			t.Fatalf("out of order: want %d, got %d", i, v.Seq)
		}
	}
	if _, err := c.Recv(); !cos.IsErrEmpty(err) {
		t.Fatalf("expected ErrEmpty, got %v", err)
	}
}

func TestSecondProducerConflicts(t *testing.T) {
	topic := "imu-" + cos.GenUUID()
	p, err := link.NewProducer[imuSample](topic)
	if err != nil {
		t.Fatalf("NewProducer: %v", err)
	}
	defer p.Close()

	if _, err := link.NewProducer[imuSample](topic); err == nil {
		t.Fatal("expected ErrTopicRoleConflict for a second producer")
	}
}

func TestSecondConsumerConflicts(t *testing.T) {
	topic := "imu-" + cos.GenUUID()
	c, err := link.NewConsumer[imuSample](topic)
	if err != nil {
		t.Fatalf("NewConsumer: %v", err)
	}
	defer c.Close()

	if _, err := link.NewConsumer[imuSample](topic); err == nil {
		t.Fatal("expected ErrTopicRoleConflict for a second consumer")
	}
}

func TestLoanWritesWithoutIntermediateCopy(t *testing.T) {
	topic := "imu-" + cos.GenUUID()
	p, err := link.NewProducer[imuSample](topic)
	if err != nil {
		t.Fatalf("NewProducer: %v", err)
	}
	defer p.Close()
	c, err := link.NewConsumer[imuSample](topic)
	if err != nil {
		t.Fatalf("NewConsumer: %v", err)
	}
	defer c.Close()

	sample, err := p.Loan()
	if err != nil {
		t.Fatalf("Loan: %v", err)
	}
	sample.Ptr().Seq = 7
	sample.Ptr().AccelX = 9.5
	sample.Write(*sample.Ptr())

	v, err := c.Recv()
	if err != nil {
		t.Fatalf("Recv: %v", err)
	}
	if v.Seq != 7 || v.AccelX != 9.5 {
		t.Fatalf("want Seq=7 AccelX=9.5, got %+v", v)
	}
}

func TestRecvWaitObservesDelayedSend(t *testing.T) {
	topic := "imu-" + cos.GenUUID()
	p, err := link.NewProducer[imuSample](topic)
	if err != nil {
		t.Fatalf("NewProducer: %v", err)
	}
	defer p.Close()
	c, err := link.NewConsumer[imuSample](topic)
	if err != nil {
		t.Fatalf("NewConsumer: %v", err)
	}
	defer c.Close()

	go func() {
		time.Sleep(5 * time.Millisecond)
		p.Send(imuSample{Seq: 3})
	}()
	v, err := c.RecvWait(200 * time.Millisecond)
	if err != nil {
		t.Fatalf("RecvWait: %v", err)
	}
	if v.Seq != 3 {
		t.Fatalf("want Seq=3, got %+v", v)
	}

	if _, err := c.RecvWait(0); !cos.IsErrEmpty(err) {
		t.Fatalf("zero timeout must stay non-blocking, got %v", err)
	}
}

func TestFullWhenConsumerNeverDrains(t *testing.T) {
	topic := "imu-" + cos.GenUUID()
	p, err := link.NewProducer[imuSample](topic)
	if err != nil {
		t.Fatalf("NewProducer: %v", err)
	}
	defer p.Close()
	c, err := link.NewConsumer[imuSample](topic)
	if err != nil {
		t.Fatalf("NewConsumer: %v", err)
	}
	defer c.Close()

	var lastErr error
	for i := 0; i < 4096; i++ {
		if lastErr = p.Send(imuSample{Seq: int64(i)}); lastErr != nil {
			break
		}
	}
	if !cos.IsErrFull(lastErr) {
		t.Fatalf("expected eventual ErrFull, got %v", lastErr)
	}
}
