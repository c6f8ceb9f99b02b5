package deque

import "flownet/model"

// 数组大小基数
const base = 8

// 环形数组实现，结果按时间顺序连续存放，遍历局部性好
type ArrDeque struct {
	arr   []model.Snapshot
	start int

	// 元素个数
	size int
	// 容量
	capacity int
}

// 工厂方法，容量向上取整为 base 的倍数
func NewArrDeque(capacity int) *ArrDeque {
	if capacity < 1 {
		capacity = 1
	}
	remainder := capacity % base
	if remainder != 0 {
		capacity = capacity - remainder + base
	}
	return &ArrDeque{
		arr:      make([]model.Snapshot, capacity),
		capacity: capacity,
	}
}

func (ad *ArrDeque) Size() int {
	return ad.size
}

func (ad *ArrDeque) Capacity() int {
	return ad.capacity
}

func (ad *ArrDeque) Traverse(f func(i int, item *model.Snapshot)) {
	for i := 0; i < ad.size; i++ {
		f(i, &ad.arr[(ad.start+i)%ad.capacity])
	}
}

func (ad *ArrDeque) AddLast(item model.Snapshot) {
	if ad.size == ad.capacity {
		ad.RemoveFirst()
	}
	ad.arr[(ad.start+ad.size)%ad.capacity] = item
	ad.size++
}

func (ad *ArrDeque) RemoveFirst() {
	if ad.size == 0 {
		return
	}
	ad.arr[ad.start] = model.Snapshot{}
	ad.start = (ad.start + 1) % ad.capacity
	ad.size--
}

func (ad *ArrDeque) Clear() {
	for ad.size > 0 {
		ad.RemoveFirst()
	}
	ad.start = 0
}

func (ad *ArrDeque) IsFull() bool {
	return ad.size == ad.capacity
}

func (ad *ArrDeque) IsEmpty() bool {
	return ad.size == 0
}
