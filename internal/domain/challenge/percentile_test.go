package challenge

import (
	"fmt"
	"math/rand"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/okian/budgetgm/internal/domain/model"
	"github.com/okian/budgetgm/internal/domain/rating"
	"github.com/smartystreets/goconvey/convey"
)

func sub(id string, wins, losses int) model.Submission {
	return model.Submission{Identity: id, Record: model.Record{Wins: wins, Losses: losses}}
}

func TestPercentileAt(t *testing.T) {
	convey.Convey("Given sorted positions", t, func() {
		convey.So(PercentileAt(0, 1), convey.ShouldEqual, 100)
		convey.So(PercentileAt(0, 2), convey.ShouldEqual, 100)
		convey.So(PercentileAt(1, 2), convey.ShouldEqual, 0)
		convey.So(PercentileAt(1, 3), convey.ShouldEqual, 50)
		convey.So(PercentileAt(1, 4), convey.ShouldEqual, 66.7)
		convey.So(PercentileAt(2, 4), convey.ShouldEqual, 33.3)
	})
}

func TestPercentile(t *testing.T) {
	convey.Convey("Given an existing cohort", t, func() {
		existing := []model.Submission{sub("a", 60, 22), sub("b", 40, 42)}

		convey.Convey("When a middling entry joins", func() {
			convey.So(Percentile(existing, sub("c", 50, 32)), convey.ShouldEqual, 50)
		})

		convey.Convey("When an identity resubmits", func() {
			convey.Convey("Then its old entry is not counted", func() {
				convey.So(Percentile(existing, sub("a", 30, 52)), convey.ShouldEqual, 0)
			})
		})

		convey.Convey("When records tie", func() {
			convey.Convey("Then the identity breaks the tie", func() {
				convey.So(Percentile(existing, sub("0", 60, 22)), convey.ShouldEqual, 100)
				convey.So(Percentile(existing, sub("z", 60, 22)), convey.ShouldEqual, 50)
			})
		})

		convey.Convey("When the cohort is empty", func() {
			convey.So(Percentile(nil, sub("solo", 10, 72)), convey.ShouldEqual, 100)
		})
	})
}

func TestStandings(t *testing.T) {
	convey.Convey("Given stored submissions", t, func() {
		subs := map[string]model.Submission{
			"b": sub("b", 50, 32),
			"a": sub("a", 50, 32),
			"c": sub("c", 50, 30),
			"d": sub("d", 70, 12),
		}

		convey.Convey("Then they are ranked by wins, losses and identity", func() {
			board := Standings(subs)
			order := make([]string, len(board))
			for i, s := range board {
				order[i] = s.Submission.Identity
				convey.So(s.Rank, convey.ShouldEqual, i+1)
			}
			convey.So(order, convey.ShouldResemble, []string{"d", "c", "a", "b"})
			convey.So(board[0].Percentile, convey.ShouldEqual, 100)
			convey.So(board[3].Percentile, convey.ShouldEqual, 0)
		})

		convey.Convey("Then an empty map gives an empty board", func() {
			convey.So(Standings(nil), convey.ShouldBeEmpty)
		})
	})
}

func TestSample(t *testing.T) {
	convey.Convey("Given a rated pool", t, func() {
		lines := make([]model.PlayerLine, 100)
		for i := range lines {
			lines[i] = model.PlayerLine{
				Name:     fmt.Sprintf("p%03d", i),
				Position: model.Positions[i%5],
				Stats:    model.StatLine{Points: float64(i), GamesPlayed: 246},
			}
		}
		pool := rating.NewRater().BuildPool(lines)

		convey.Convey("When sampling with the same date seed twice", func() {
			a, shortA := Sample(pool, PlayersPerTier, rand.New(rand.NewSource(DateSeed("2024-03-01"))))
			b, _ := Sample(pool, PlayersPerTier, rand.New(rand.NewSource(DateSeed("2024-03-01"))))

			convey.Convey("Then the picks match and respect tiers", func() {
				convey.So(shortA, convey.ShouldBeEmpty)
				convey.So(a, convey.ShouldResemble, b)
				for tier, players := range a {
					convey.So(players, convey.ShouldHaveLength, PlayersPerTier)
					seen := map[string]bool{}
					for _, p := range players {
						convey.So(p.Cost, convey.ShouldEqual, tier)
						convey.So(seen[p.Name], convey.ShouldBeFalse)
						seen[p.Name] = true
					}
				}
			})
		})

		convey.Convey("When dates differ", func() {
			convey.So(DateSeed("2024-03-01"), convey.ShouldNotEqual, DateSeed("2024-03-02"))
		})

		convey.Convey("When a tier is too small", func() {
			picked, short := Sample(pool, 25, rand.New(rand.NewSource(1)))

			convey.Convey("Then it contributes every player and is reported", func() {
				convey.So(short, convey.ShouldResemble, []int{3, 4, 5})
				convey.So(picked[5], convey.ShouldHaveLength, 5)
				convey.So(picked[4], convey.ShouldHaveLength, 15)
				convey.So(picked[1], convey.ShouldHaveLength, 25)
			})
		})
	})
}

func TestKeyedMutex(t *testing.T) {
	convey.Convey("Given a keyed mutex", t, func() {
		k := newKeyedMutex()

		convey.Convey("When many goroutines contend on one key", func() {
			var inside, peak int32
			var wg sync.WaitGroup
			for i := 0; i < 16; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					unlock := k.Lock("2024-03-01")
					n := atomic.AddInt32(&inside, 1)
					for {
						p := atomic.LoadInt32(&peak)
						if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
							break
						}
					}
					time.Sleep(time.Millisecond)
					atomic.AddInt32(&inside, -1)
					unlock()
				}()
			}
			wg.Wait()

			convey.Convey("Then only one holds it at a time and idle keys are dropped", func() {
				convey.So(peak, convey.ShouldEqual, 1)
				convey.So(k.locks, convey.ShouldBeEmpty)
			})
		})

		convey.Convey("When different keys are locked", func() {
			a := k.Lock("a")
			done := make(chan struct{})
			go func() {
				k.Lock("b")()
				close(done)
			}()

			convey.Convey("Then they do not block each other", func() {
				select {
				case <-done:
				case <-time.After(time.Second):
					t.Fatal("lock on b blocked behind a")
				}
				a()
			})
		})
	})
}
